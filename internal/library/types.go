// Package library holds the textbook catalog: subjects and their chapters.
package library

// Chapter is one textbook chapter a student can focus on.
type Chapter struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Subject  string `yaml:"-" json:"subject"`
	Grade    int    `yaml:"grade" json:"grade"`
	Filename string `yaml:"filename" json:"filename"`
}

// Subject groups chapters (e.g., Science).
type Subject struct {
	Name     string    `yaml:"subject" json:"subject"`
	Chapters []Chapter `yaml:"chapters" json:"chapters"`
}

// DefaultSubjects is used for mastery display when the catalog is empty.
var DefaultSubjects = []string{"Science", "Mathematics", "English", "Social Science"}
