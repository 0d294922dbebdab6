package upcall

import (
	"encoding/gob"
	"io"
)

// streamTransport speaks the upcall protocol over a byte stream, one
// gob-encoded Request or Response at a time. The mount front-end uses it
// on stdin/stdout, which is where the external bridge process attaches.
type streamTransport struct {
	dec *gob.Decoder
	enc *gob.Encoder
}

// NewStreamTransport wraps a reader/writer pair as a Transport.
func NewStreamTransport(r io.Reader, w io.Writer) Transport {
	return &streamTransport{gob.NewDecoder(r), gob.NewEncoder(w)}
}

func (t *streamTransport) Recv() (*Request, error) {
	req := new(Request)
	if err := t.dec.Decode(req); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return req, nil
}

func (t *streamTransport) Send(res *Response) error {
	return t.enc.Encode(res)
}
