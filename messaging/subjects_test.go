package messaging

import "testing"

func TestIsRepChangeSubject(t *testing.T) {
	tests := []struct {
		subject  string
		expected bool
	}{
		{SubjectFileRepChange, true},
		{SubjectCertRepChange, true},
		{"tie.event.file.detection", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsRepChangeSubject(tt.subject); got != tt.expected {
			t.Errorf("IsRepChangeSubject(%q) = %v, want %v", tt.subject, got, tt.expected)
		}
	}
}
