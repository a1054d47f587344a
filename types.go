package giftstory

// Image is an uploaded picture stored under the static uploads directory.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
	URL          string // public URL, filled in when listed
}
