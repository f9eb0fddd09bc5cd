package vcs_test

import (
	"errors"
	"fmt"
	"testing"

	"vcs-go/internal/vcs"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want vcs.ErrorKind
	}{
		{vcs.ErrRepositoryNotFound, vcs.KindNotFound},
		{vcs.ErrFileNotInCommit, vcs.KindNotFound},
		{vcs.ErrRepositoryExists, vcs.KindConflict},
		{vcs.ErrNothingStaged, vcs.KindConflict},
		{vcs.ErrEmptyMessage, vcs.KindInvalid},
		{vcs.ErrInvalidPath, vcs.KindInvalid},
		{vcs.ErrTargetPath, vcs.KindIOFailure},
		{fmt.Errorf("loading: %w", fmt.Errorf("%w: x", vcs.ErrCommitNotFound)), vcs.KindNotFound},
		{errors.New("plain"), vcs.KindUnknown},
		{nil, vcs.KindUnknown},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			if got := vcs.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	if got := vcs.KindIOFailure.String(); got != "io_failure" {
		t.Errorf("String() = %q, want io_failure", got)
	}
	if got := vcs.ErrorKind(99).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
}
