package firmware

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/models"
)

var RECORD_MAGIC = "E820"

const RECORD_VERSION = 1

type RecordHeader struct {
	// MAGIC ("E820")
	Magic   string `struc:"[4]byte"`
	Version uint32
	// platform or machine the session was recorded on. Right-null-padded.
	Platform string `struc:"[32]byte"`
}

// Frame is one recorded query and its answer.
type Frame struct {
	Token  uint32
	Next   uint32
	Status uint8
	Raw    models.SplitDescriptor
}

var order = binary.LittleEndian

// Recorder passes queries through to Firmware and writes every answer to
// a snappy-compressed recording.
type Recorder struct {
	Firmware models.Firmware

	w  io.WriteCloser
	zw *snappy.Writer
}

func NewRecorder(w io.WriteCloser, fw models.Firmware, platform string) (*Recorder, error) {
	header := &RecordHeader{
		Magic:    RECORD_MAGIC,
		Version:  RECORD_VERSION,
		Platform: platform,
	}
	if len(header.Platform) > 32 {
		header.Platform = header.Platform[:32]
	}
	if err := struc.PackWithOrder(w, header, order); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	return &Recorder{Firmware: fw, w: w, zw: snappy.NewBufferedWriter(w)}, nil
}

func (r *Recorder) QueryRange(dst *models.RangeDescriptor, token uint32) (uint32, models.QueryStatus, error) {
	next, status, err := r.Firmware.QueryRange(dst, token)
	if err != nil {
		// machine failures are not firmware behavior and are not replayable
		return next, status, err
	}
	frame := &Frame{Token: token, Next: next, Status: uint8(status)}
	if status == models.Filled {
		frame.Raw = dst.Split()
	}
	if err := struc.PackWithOrder(r.zw, frame, order); err != nil {
		return next, status, errors.Wrap(err, "failed to record frame")
	}
	return next, status, nil
}

func (r *Recorder) Close() error {
	if err := r.zw.Close(); err != nil {
		r.w.Close()
		return errors.Wrap(err, "failed to flush recording")
	}
	return r.w.Close()
}

// Replay answers queries from a recording. Queries must arrive with the
// same tokens in the same order they were recorded.
type Replay struct {
	Header RecordHeader

	r     io.ReadCloser
	zr    *snappy.Reader
	calls int
}

func NewReplay(r io.ReadCloser) (*Replay, error) {
	p := &Replay{r: r}
	if err := struc.UnpackWithOrder(r, &p.Header, order); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if p.Header.Magic != RECORD_MAGIC {
		return nil, errors.New("invalid recording magic")
	}
	if p.Header.Version != RECORD_VERSION {
		return nil, errors.Errorf("unsupported recording version %d", p.Header.Version)
	}
	p.Header.Platform = strings.TrimRight(p.Header.Platform, "\x00")
	p.zr = snappy.NewReader(r)
	return p, nil
}

func (p *Replay) QueryRange(dst *models.RangeDescriptor, token uint32) (uint32, models.QueryStatus, error) {
	var frame Frame
	if err := struc.UnpackWithOrder(p.zr, &frame, order); err != nil {
		if errors.Cause(err) == io.EOF {
			return 0, models.Unsupported, errors.Errorf("recording ended after %d queries", p.calls)
		}
		return 0, models.Unsupported, errors.Wrap(err, "failed to read frame")
	}
	p.calls++
	if frame.Token != token {
		return 0, models.Unsupported, errors.Errorf("query %d: token %#x does not match recorded token %#x", p.calls-1, token, frame.Token)
	}
	status := models.QueryStatus(frame.Status)
	if status == models.Filled {
		*dst = frame.Raw.Join()
	}
	return frame.Next, status, nil
}

func (p *Replay) Close() error {
	p.zr.Reset(nil)
	return p.r.Close()
}
