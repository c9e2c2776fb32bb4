package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"report.docx", "report.docx"},
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{"i contain cool ümläuts.txt", "i_contain_cool_umlauts.txt"},
		{"résumé.pdf", "resume.pdf"},
		{`C:\Users\me\file.doc`, "C_Users_me_file.doc"},
		{"tab\tand  spaces.csv", "tab_and_spaces.csv"},
		{"weird$%name!.rtf", "weirdname.rtf"},
		{"日本語.txt", "txt"},
		{"...", "upload"},
		{"", "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSourceExtension(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"report.docx", "docx"},
		{"Report.DOCX", "docx"},
		{"archive.tar.gz", "gz"},
		{"README", ""},
		{"dir.v2/README", ""},
		{`C:\clips\clip.MOV`, "mov"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SourceExtension(tt.input))
		})
	}
}

func TestResponseFilename(t *testing.T) {
	tests := []struct {
		original string
		target   string
		want     string
	}{
		{"report.docx", "pdf", "report.pdf"},
		{"clip.mov", "mp4", "clip.mp4"},
		{"archive.tar.gz", "zip", "archive.tar.zip"},
		{"README", "pdf", "README.pdf"},
		{"résumé.doc", "pdf", "résumé.pdf"},
		{`C:\docs\Q1 plan.xlsx`, "csv", "Q1 plan.csv"},
		{".docx", "pdf", "upload.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Equal(t, tt.want, ResponseFilename(tt.original, tt.target))
		})
	}
}
