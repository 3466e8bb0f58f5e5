package ai

import (
	"context"
	"io"
	"strings"
	"testing"
)

// chunkReader delivers the stream in fixed-size byte chunks to exercise the
// line buffering.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.size
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

func TestDecodeSSE_DeliveriesIdenticalForAnyChunking(t *testing.T) {
	stream := "data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n"

	var want []string
	collect := func(out *[]string) func(string) error {
		return func(data string) error {
			*out = append(*out, data)
			return nil
		}
	}
	if err := decodeSSE(context.Background(), strings.NewReader(stream), collect(&want)); err != nil {
		t.Fatalf("decode unsplit stream: %v", err)
	}
	if len(want) != 2 {
		t.Fatalf("expected 2 payloads from unsplit stream, got %v", want)
	}

	for size := 1; size <= len(stream); size++ {
		var got []string
		r := &chunkReader{data: []byte(stream), size: size}
		if err := decodeSSE(context.Background(), r, collect(&got)); err != nil {
			t.Fatalf("decode with chunk size %d: %v", size, err)
		}
		if len(got) != len(want) {
			t.Fatalf("chunk size %d: got %v, want %v", size, got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("chunk size %d payload %d: got %q, want %q", size, i, got[i], want[i])
			}
		}
	}
}

func TestDecodeSSE_ToleratesCRLFAndMissingTrailingNewline(t *testing.T) {
	stream := "data: one\r\n\r\ndata: two"
	var got []string
	err := decodeSSE(context.Background(), strings.NewReader(stream), func(data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected payloads: %v", got)
	}
}

func TestDecodeSSE_StopsAtDoneSentinel(t *testing.T) {
	stream := "data: before\n\ndata: [DONE]\n\ndata: after\n\n"
	var got []string
	err := decodeSSE(context.Background(), strings.NewReader(stream), func(data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if len(got) != 1 || got[0] != "before" {
		t.Fatalf("expected only payloads before [DONE], got %v", got)
	}
}

func TestDecodeSSE_SkipsEmptyAndNonDataLines(t *testing.T) {
	stream := ": comment\nevent: message\ndata: \ndata: real\n\n"
	var got []string
	err := decodeSSE(context.Background(), strings.NewReader(stream), func(data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if len(got) != 1 || got[0] != "real" {
		t.Fatalf("unexpected payloads: %v", got)
	}
}

func TestDecodeSSE_CancelledContextStopsDecode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := "data: one\n\ndata: two\n\n"
	calls := 0
	err := decodeSSE(ctx, strings.NewReader(stream), func(data string) error {
		calls++
		cancel()
		return nil
	})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected decode to stop after cancellation, got %d calls", calls)
	}
}
