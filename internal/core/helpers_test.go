package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"docseek/internal/directory"
	"docseek/internal/llm"
)

// fakeLLM replays canned completions.
type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
	got     [][]llm.Message
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = append(f.got, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	d, err := directory.New([]directory.Specialty{
		{Name: "neurology", Doctors: []directory.DoctorEntry{
			{Name: "Dr. Lim (Neurologist)"},
			{Name: "Dr. Singh (Brain Specialist)"},
		}},
		{Name: "radiology"},
	})
	require.NoError(t, err)
	return d
}

func richDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	d, err := directory.New([]directory.Specialty{
		{Name: "general", Doctors: []directory.DoctorEntry{
			{ID: "1", Name: "Dr. A", Symptoms: []string{"fever"}, Location: "SG"},
			{ID: "2", Name: "Dr. B", Symptoms: []string{"Fever", "cough"}, Location: "Singapore"},
		}},
		{Name: "neurology", Doctors: []directory.DoctorEntry{
			{ID: "3", Name: "Dr. C", Symptoms: []string{"headache"}, Location: "Singapore"},
		}},
	})
	require.NoError(t, err)
	return d
}
