package domain

// DownloadRequest is a single URL paired with the base file name it will be
// stored under. Requests are created by the coordinator before dispatch.
type DownloadRequest struct {
	URL           string
	CandidateName string
}

// DownloadOutcome is the terminal result of fetching one DownloadRequest.
// FinalPath is set only when Accepted is true.
type DownloadOutcome struct {
	Accepted  bool
	FinalPath string
	Format    string
	Reason    RejectReason
	Attempts  int
}

// BatchResult aggregates the outcomes observed before the batch deadline.
type BatchResult struct {
	SuccessCount int
	Total        int
	Abandoned    int
}
