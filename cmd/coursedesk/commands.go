package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/moviles/coursedesk/internal/apperrors"
	"github.com/moviles/coursedesk/internal/reconciler"
	"github.com/moviles/coursedesk/internal/types"
)

var stdout io.Writer = os.Stdout

func (a *app) runCourses(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		// Refresh failures are logged; the cache is printed either way.
		_ = a.courses.Refresh(ctx)
		courses, err := a.courses.Cached(ctx)
		if err != nil {
			return err
		}
		a.printCourses(courses, a.courses.CurrentOrigin())
		return nil

	case "refresh":
		// Like list, but a failed refresh is the command's result.
		if err := a.courses.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "courses refreshed from %s\n", a.courses.CurrentOrigin())
		return nil

	case "watch":
		fs := flag.NewFlagSet("courses watch", flag.ContinueOnError)
		interval := fs.Duration("interval", 30*time.Second, "Refresh interval")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return a.watchCourses(ctx, *interval)

	case "get":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		c, err := a.courses.Get(ctx, id)
		if err != nil {
			return err
		}
		a.printCourses([]types.Course{c}, a.courses.CurrentOrigin())
		return nil

	case "create":
		fields, imagePath, err := parseCourseFlags("courses create", args, types.CourseFields{})
		if err != nil {
			return err
		}
		image, err := loadImage(imagePath)
		if err != nil {
			return err
		}
		created, err := a.courses.Create(ctx, fields, image)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created course %d\n", *created.ID)
		return nil

	case "update":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		current, err := a.courses.Get(ctx, id)
		if err != nil {
			return err
		}
		fields, imagePath, err := parseCourseFlags("courses update", args[1:], current.Fields())
		if err != nil {
			return err
		}
		var image *types.Image
		if imagePath != "" {
			if image, err = loadImage(imagePath); err != nil {
				return err
			}
		}
		current.Name, current.Description = fields.Name, fields.Description
		current.Schedule, current.Professor = fields.Schedule, fields.Professor
		if _, err := a.courses.Update(ctx, current, image); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "updated course %d\n", id)
		return nil

	case "delete":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		if err := a.courses.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted course %d\n", id)
		return nil
	}
	return errUsage
}

func (a *app) runStudents(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		courseID, err := argID(args, 0)
		if err != nil {
			return err
		}
		_ = a.students.FetchByCourse(ctx, courseID)
		students, err := a.students.Cached(ctx)
		if err != nil {
			return err
		}
		printStudents(students, a.students.CurrentOrigin())
		return nil

	case "create":
		s, err := parseStudentFlags("students create", args, types.Student{})
		if err != nil {
			return err
		}
		created, err := a.students.Create(ctx, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created student %d\n", *created.ID)
		return nil

	case "update":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		s, err := parseStudentFlags("students update", args[1:], types.Student{ID: types.Int64(id)})
		if err != nil {
			return err
		}
		// Start from the cached record so only the given flags change.
		_ = a.students.FetchByCourse(ctx, s.CourseID)
		if cached, err := a.students.Cached(ctx); err == nil {
			for _, c := range cached {
				if *c.ID == id {
					s = mergeStudent(c, s)
				}
			}
		}
		if _, err := a.students.Update(ctx, s); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "updated student %d\n", id)
		return nil

	case "delete":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		courseID, err := argID(args, 1)
		if err != nil {
			return err
		}
		if err := a.students.Delete(ctx, id, courseID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted student %d\n", id)
		return nil
	}
	return errUsage
}

// watchCourses refreshes on a timer and prints every list the reconciler
// publishes until ctx is cancelled.
func (a *app) watchCourses(ctx context.Context, interval time.Duration) error {
	sub := a.courses.Courses()
	defer sub.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	go a.courses.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case courses, ok := <-sub.C:
			if !ok {
				return nil
			}
			a.printCourses(courses, a.courses.CurrentOrigin())
		case <-ticker.C:
			go a.courses.Refresh(ctx)
		}
	}
}

func (a *app) printCourses(courses []types.Course, origin reconciler.Origin) {
	fmt.Fprintf(stdout, "source: %s\n", origin)
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSCHEDULE\tPROFESSOR\tIMAGE")
	for _, c := range courses {
		image := ""
		if c.ImageURL != nil {
			image = a.api.ResolveImageURL(*c.ImageURL)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", deref(c.ID), c.Name, c.Schedule, c.Professor, image)
	}
	w.Flush()
}

func printStudents(students []types.Student, origin reconciler.Origin) {
	fmt.Fprintf(stdout, "source: %s\n", origin)
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tCOURSE")
	for _, s := range students {
		phone := ""
		if s.Phone != nil {
			phone = *s.Phone
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", deref(s.ID), s.Name, s.Email, phone, s.CourseID)
	}
	w.Flush()
}

// parseCourseFlags parses the course flags on top of defaults.
func parseCourseFlags(name string, args []string, defaults types.CourseFields) (types.CourseFields, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	f := defaults
	fs.StringVar(&f.Name, "name", f.Name, "Course name")
	fs.StringVar(&f.Description, "description", f.Description, "Course description")
	fs.StringVar(&f.Schedule, "schedule", f.Schedule, "Course schedule")
	fs.StringVar(&f.Professor, "professor", f.Professor, "Professor")
	image := fs.String("image", "", "Path to the course image")
	if err := fs.Parse(args); err != nil {
		return types.CourseFields{}, "", fmt.Errorf("%w: %v", errUsage, err)
	}
	return f, *image, nil
}

// parseStudentFlags parses the student flags on top of base. Phone is
// only set when the flag is given.
func parseStudentFlags(name string, args []string, base types.Student) (types.Student, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	s := base
	fs.StringVar(&s.Name, "name", s.Name, "Student name")
	fs.StringVar(&s.Email, "email", s.Email, "Student email")
	fs.Int64Var(&s.CourseID, "course", s.CourseID, "Course id")
	phone := fs.String("phone", "", "Phone number")
	if err := fs.Parse(args); err != nil {
		return types.Student{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "phone" {
			s.Phone = types.String(*phone)
		}
	})
	return s, nil
}

// mergeStudent fills the zero fields of patch from cached.
func mergeStudent(cached, patch types.Student) types.Student {
	if patch.Name == "" {
		patch.Name = cached.Name
	}
	if patch.Email == "" {
		patch.Email = cached.Email
	}
	if patch.Phone == nil {
		patch.Phone = cached.Phone
	}
	return patch
}

// loadImage reads the image at path. A missing path or file is a
// precondition failure, reported before anything is sent.
func loadImage(path string) (*types.Image, error) {
	if path == "" {
		return nil, nil
	}
	image, err := types.LoadImage(path)
	if err != nil {
		return nil, apperrors.NewPreconditionError("image file %s: %v", path, err)
	}
	return image, nil
}

func argID(args []string, i int) (int64, error) {
	if len(args) <= i {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, args[i])
	}
	return id, nil
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
