package provider

import (
	"context"
	"hash/fnv"
)

// FakeEmbedder produces deterministic vectors for tests. Texts sharing
// words land near each other, which is enough for ranking assertions.
type FakeEmbedder struct {
	Dimension int
	Err       error
}

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	dim := f.Dimension
	if dim == 0 {
		dim = 8
	}
	vec := make([]float32, dim)
	h := fnv.New32a()
	for i := 0; i < len(text); i++ {
		h.Write([]byte{text[i]})
		vec[int(h.Sum32())%dim] += 1
	}
	return vec, nil
}

// FakeGenerator returns a canned answer or error and remembers the last
// request it saw.
type FakeGenerator struct {
	Answer string
	Err    error
	Calls  int
	Last   GenerateRequest
}

func (f *FakeGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	f.Calls++
	f.Last = req
	if f.Err != nil {
		return "", f.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Answer, nil
}
