package job

// ScanRequest is a batch of images to scan plus tracking tags threaded
// through to the scanner invocation.
type ScanRequest struct {
	Images []string          `json:"images"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Job is one enqueued unit of scan work.
type Job struct {
	Name string
	ID   string
	Args Args
}

type Args struct {
	ScanRequest *ScanRequest `json:",omitempty"`
}
