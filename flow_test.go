package blepty

import (
	"bytes"
	"errors"
	"slices"
	"testing"
)

type fakeLink struct {
	results   [][]byte
	asyncErrs []error
	writes    [][]byte
	async     [][]byte
	connected bool
}

var _ Link = (*fakeLink)(nil)

func (l *fakeLink) Write(p []byte) ([]byte, error) {
	l.writes = append(l.writes, slices.Clone(p))
	i := len(l.writes) - 1
	if i >= len(l.results) {
		i = len(l.results) - 1
	}
	return l.results[i], nil
}

func (l *fakeLink) WriteWithoutResponse(p []byte) error {
	if len(l.asyncErrs) > 0 {
		err := l.asyncErrs[0]
		l.asyncErrs = l.asyncErrs[1:]
		if err != nil {
			return err
		}
	}
	l.async = append(l.async, slices.Clone(p))
	return nil
}

func (l *fakeLink) IsConnected() bool {
	return l.connected
}

func (l *fakeLink) Disconnect() error {
	l.connected = false
	return nil
}

func fill(a *Assembler, p []byte) {
	for _, c := range p {
		a.Append(c)
	}
}

func TestFireAndForget(t *testing.T) {
	t.Run("sends the chunk as-is", func(t *testing.T) {
		link := &fakeLink{connected: true}
		a := NewAssembler(20)
		fill(a, []byte("HELLO"))

		p, err := (&FireAndForget{}).Flush(link, a)
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(p, []byte("HELLO")) {
			t.Fatalf("expected %q, got %q", "HELLO", p)
		}
		if len(link.async) != 1 || !bytes.Equal(link.async[0], []byte("HELLO")) {
			t.Fatalf("expected one unpadded write of %q, got %v", "HELLO", link.async)
		}
		if len(link.writes) != 0 {
			t.Fatalf("expected no blocking writes, got %d", len(link.writes))
		}
		if n := a.Size(); n != 0 {
			t.Fatalf("expected 0, got %d", n)
		}
	})

	t.Run("a failed issue drops the chunk without failing", func(t *testing.T) {
		issueErr := errors.New("controller busy")
		link := &fakeLink{
			connected: true,
			asyncErrs: []error{issueErr},
		}
		a := NewAssembler(20)
		fill(a, []byte("HELLO"))

		var reported []error
		f := &FireAndForget{
			OnError: func(err error) {
				reported = append(reported, err)
			},
		}

		p, err := f.Flush(link, a)
		if err != nil {
			t.Fatal(err)
		}
		if p != nil {
			t.Fatalf("expected no payload, got %q", p)
		}
		if len(reported) != 1 || !errors.Is(reported[0], issueErr) {
			t.Fatalf("expected %v to be reported, got %v", issueErr, reported)
		}
		if len(link.async) != 0 {
			t.Fatalf("expected no writes, got %v", link.async)
		}
		if n := a.Size(); n != 0 {
			t.Fatalf("expected 0, got %d", n)
		}
	})
}

func TestAcknowledged(t *testing.T) {
	t.Run("retries the identical write until the ack", func(t *testing.T) {
		input := fakeBytes(23, func(i int) byte { return byte(i) })

		link := &fakeLink{
			connected: true,
			results:   [][]byte{{0x00}, {AckComplete}},
		}
		a := NewAssembler(23)
		fill(a, input)

		p, err := NewAcknowledged().Flush(link, a)
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(p, input) {
			t.Fatalf("expected %v, got %v", input, p)
		}
		if len(link.writes) != 2 {
			t.Fatalf("expected 2 writes, got %d", len(link.writes))
		}
		if !bytes.Equal(link.writes[0], link.writes[1]) {
			t.Fatalf("expected identical writes, got %v and %v", link.writes[0], link.writes[1])
		}
	})

	t.Run("pads short chunks to capacity", func(t *testing.T) {
		link := &fakeLink{
			connected: true,
			results:   [][]byte{{AckComplete}},
		}
		a := NewAssembler(23)
		fill(a, []byte("HELLO"))

		p, err := NewAcknowledged().Flush(link, a)
		if err != nil {
			t.Fatal(err)
		}

		expected := make([]byte, 23)
		copy(expected, "HELLO")
		if !bytes.Equal(p, expected) {
			t.Fatalf("expected %v, got %v", expected, p)
		}
		if len(link.writes) != 1 || len(link.writes[0]) != 23 {
			t.Fatalf("expected one 23 byte write, got %v", link.writes)
		}
	})

	t.Run("an empty result is not an ack", func(t *testing.T) {
		link := &fakeLink{
			connected: true,
			results:   [][]byte{{}, {AckComplete}},
		}
		a := NewAssembler(20)
		fill(a, []byte("x"))

		if _, err := NewAcknowledged().Flush(link, a); err != nil {
			t.Fatal(err)
		}
		if len(link.writes) != 2 {
			t.Fatalf("expected 2 writes, got %d", len(link.writes))
		}
	})

	t.Run("a zero ack token is honored", func(t *testing.T) {
		link := &fakeLink{
			connected: true,
			results:   [][]byte{{AckComplete}, {0x00}},
		}
		a := NewAssembler(20)
		fill(a, []byte("x"))

		if _, err := (&Acknowledged{Ack: 0x00}).Flush(link, a); err != nil {
			t.Fatal(err)
		}
		if len(link.writes) != 2 {
			t.Fatalf("expected 2 writes, got %d", len(link.writes))
		}
	})

	t.Run("bounded attempts surface a distinct error", func(t *testing.T) {
		link := &fakeLink{
			connected: true,
			results:   [][]byte{{0x00}},
		}
		a := NewAssembler(20)
		fill(a, []byte("x"))

		_, err := (&Acknowledged{Ack: AckComplete, MaxAttempts: 5}).Flush(link, a)
		if !errors.Is(err, ErrNotAcknowledged) {
			t.Fatalf("expected %v, got %v", ErrNotAcknowledged, err)
		}
		if len(link.writes) != 5 {
			t.Fatalf("expected 5 writes, got %d", len(link.writes))
		}
	})

	t.Run("a dropped link aborts the retry loop", func(t *testing.T) {
		link := &fakeLink{
			connected: false,
			results:   [][]byte{{0x00}},
		}
		a := NewAssembler(20)
		fill(a, []byte("x"))

		_, err := NewAcknowledged().Flush(link, a)
		if !errors.Is(err, ErrLinkLost) {
			t.Fatalf("expected %v, got %v", ErrLinkLost, err)
		}
		if len(link.writes) != 1 {
			t.Fatalf("expected 1 write, got %d", len(link.writes))
		}
	})
}

func fakeBytes(n int, fn func(i int) byte) []byte {
	bs := make([]byte, n)
	for i := 0; i < n; i++ {
		bs[i] = fn(i)
	}
	return bs
}
