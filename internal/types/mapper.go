package types

// Row flattens the course into its cached form.
func (c Course) Row() CourseRow {
	row := CourseRow{
		Name:        c.Name,
		Description: c.Description,
		Schedule:    c.Schedule,
		Professor:   c.Professor,
	}
	if c.ID != nil {
		row.ID = *c.ID
	}
	if c.ImageURL != nil {
		row.ImageURL = *c.ImageURL
	}
	return row
}

// Model expands a cached row back into a Course. Students are never
// cached alongside the course, so the list is left empty.
func (r CourseRow) Model() Course {
	c := Course{
		ID:          Int64(r.ID),
		Name:        r.Name,
		Description: r.Description,
		Schedule:    r.Schedule,
		Professor:   r.Professor,
	}
	if r.ImageURL != "" {
		c.ImageURL = String(r.ImageURL)
	}
	return c
}

// Row flattens the student into its cached form.
func (s Student) Row() StudentRow {
	row := StudentRow{
		Name:     s.Name,
		Email:    s.Email,
		CourseID: s.CourseID,
	}
	if s.ID != nil {
		row.ID = *s.ID
	}
	if s.Phone != nil {
		row.Phone = *s.Phone
	}
	return row
}

// Model expands a cached row back into a Student.
func (r StudentRow) Model() Student {
	s := Student{
		ID:       Int64(r.ID),
		Name:     r.Name,
		Email:    r.Email,
		CourseID: r.CourseID,
	}
	if r.Phone != "" {
		s.Phone = String(r.Phone)
	}
	return s
}

// CourseRows maps a slice of courses to rows.
func CourseRows(courses []Course) []CourseRow {
	rows := make([]CourseRow, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, c.Row())
	}
	return rows
}

// CourseModels maps a slice of rows to courses.
func CourseModels(rows []CourseRow) []Course {
	courses := make([]Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.Model())
	}
	return courses
}

// StudentRows maps a slice of students to rows.
func StudentRows(students []Student) []StudentRow {
	rows := make([]StudentRow, 0, len(students))
	for _, s := range students {
		rows = append(rows, s.Row())
	}
	return rows
}

// StudentModels maps a slice of rows to students.
func StudentModels(rows []StudentRow) []Student {
	students := make([]Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.Model())
	}
	return students
}
