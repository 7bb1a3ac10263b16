package types

import (
	"fmt"
	"os"
	"path/filepath"
)

// Image is an image file picked for upload with a course.
type Image struct {
	Filename string
	Data     []byte
}

// Empty reports whether there is nothing to upload.
func (i *Image) Empty() bool {
	return i == nil || len(i.Data) == 0
}

// LoadImage reads the file at path into an Image.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadImage: %w", err)
	}
	return &Image{Filename: filepath.Base(path), Data: data}, nil
}
