package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCandidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		candidate *Candidate
		wantErr   error
	}{
		{name: "nil", candidate: nil, wantErr: ErrInvalidCandidate},
		{name: "nil id", candidate: &Candidate{CreatedAt: now}, wantErr: ErrMissingID},
		{name: "zero created", candidate: &Candidate{Id: NewID()}, wantErr: ErrMissingCreatedAt},
		{name: "valid without vector", candidate: &Candidate{Id: NewID(), CreatedAt: now}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidate(tt.candidate)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidCandidate)
		})
	}
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile *Profile
		wantErr error
	}{
		{name: "nil", profile: nil, wantErr: ErrInvalidProfile},
		{name: "nil id", profile: &Profile{}, wantErr: ErrMissingID},
		{name: "non-unit vector", profile: &Profile{Id: NewID(), Vector: []float32{3, 4}}, wantErr: ErrNotUnitVector},
		{name: "unit vector", profile: &Profile{Id: NewID(), Vector: []float32{0.6, 0.8}}},
		{name: "no vector", profile: &Profile{Id: NewID()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfile(tt.profile)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
