// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/poiesic/jobfeed/core"
)

// Times are written as tagged RFC 3339 strings with nanoseconds so that
// creation times survive a round trip exactly and keep their sort order.
var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// Marshal encodes v with the storage CBOR settings.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// Unmarshal decodes data produced by Marshal into v.
func Unmarshal(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return nil
}

// MarshalCandidate serializes a Candidate to bytes.
func MarshalCandidate(c *core.Candidate) ([]byte, error) {
	return Marshal(c)
}

// UnmarshalCandidate deserializes a Candidate from bytes.
func UnmarshalCandidate(data []byte) (*core.Candidate, error) {
	var c core.Candidate
	if err := Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarshalProfile serializes a Profile to bytes.
func MarshalProfile(p *core.Profile) ([]byte, error) {
	return Marshal(p)
}

// UnmarshalProfile deserializes a Profile from bytes.
func UnmarshalProfile(data []byte) (*core.Profile, error) {
	var p core.Profile
	if err := Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
