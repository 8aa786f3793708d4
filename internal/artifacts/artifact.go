package artifacts

// Artifact describes a file or blob a tool produced (a bash command's
// captured output, a screenshot from computer-use, a document a sub-agent
// wrote), independent of where its bytes actually live.
type Artifact struct {
	Id         string
	Type       string
	MimeType   string
	Filename   string
	Size       int64
	TtlSeconds int32

	// Data holds the artifact bytes when small enough to inline; larger
	// artifacts are written to a Store and addressed via Reference instead.
	Data []byte

	// Reference is the Store-assigned locator once persisted (e.g.
	// "inline://<id>", "file://...", or an S3 key).
	Reference string
}
