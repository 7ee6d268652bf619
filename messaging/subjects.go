package messaging

// Subject constants for TIE reputation events.
// Follow the pattern: {domain}.{kind}.{resource}.{action}
const (
	// SubjectFileRepChange carries reputation change events for files.
	SubjectFileRepChange = "tie.event.file.repchange"

	// SubjectCertRepChange carries reputation change events for certificates.
	SubjectCertRepChange = "tie.event.cert.repchange"
)

// Queue group names for load-balanced consumers.
// Workers in the same queue group share messages (each message processed once).
const (
	QueueRepChangeWorkers = "tie-repchange-workers"
)

// IsRepChangeSubject reports whether subject is one of the reputation
// change subjects.
func IsRepChangeSubject(subject string) bool {
	return subject == SubjectFileRepChange || subject == SubjectCertRepChange
}
