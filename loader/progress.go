package loader

import (
	"io"
)

// Progress is reported while a resource with known size is downloaded
type Progress struct {
	ResourceID  string `json:"resource_id"`
	BytesLoaded int64  `json:"bytes_loaded"`
	BytesTotal  int64  `json:"bytes_total"`
}

func (p Progress) Fraction() float32 {
	if p.BytesTotal <= 0 {
		return 0
	}
	return float32(p.BytesLoaded) / float32(p.BytesTotal)
}

type progressReader struct {
	r      io.Reader
	report func(Progress)
	p      Progress
}

// withProgress wraps r, no events are produced when total is unknown
func withProgress(r io.Reader, id string, total int64, report func(Progress)) io.Reader {
	if report == nil || total < 0 {
		return r
	}
	return &progressReader{r: r, report: report, p: Progress{ResourceID: id, BytesTotal: total}}
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.p.BytesLoaded += int64(n)
		pr.report(pr.p)
	}
	return n, err
}
