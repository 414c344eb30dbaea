package replay

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Open reads a replay log and returns a byte stream that emits the recorded
// sentences (CRLF terminated) with their original pacing. The stream plugs
// into the tracker wherever a serial port would; closing it stops playback.
func Open(path string, speedMultiplier float64, loop bool) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	recs, err := NewReader(f).ReadAll()
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("replay: %s: %w", path, err)
	}

	pr, pw := io.Pipe()
	go func() {
		err := Play(recs, speedMultiplier, loop, nil, func(line string) error {
			_, werr := pw.Write([]byte(line + "\r\n"))
			return werr
		})
		_ = pw.CloseWithError(err)
	}()
	return pr, nil
}

// RecordingReader tees a byte stream into a replay log, one record per
// received line. Partial lines at stream end are dropped.
type RecordingReader struct {
	r   io.Reader
	w   *Writer
	buf []byte
	now func() time.Time
}

func NewRecordingReader(r io.Reader, w *Writer) *RecordingReader {
	return &RecordingReader{r: r, w: w, now: time.Now}
}

func (rr *RecordingReader) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	for _, c := range p[:n] {
		if c == '\n' {
			if len(rr.buf) > 0 {
				_ = rr.w.WriteLine(rr.now(), string(rr.buf))
				rr.buf = rr.buf[:0]
			}
			continue
		}
		if c != '\r' {
			rr.buf = append(rr.buf, c)
		}
	}
	return n, err
}
