package pagination

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-crypt/x/blake2b"
)

const checksumSize = 8

// Cursor is the decoded form of a continuation token.
type Cursor struct {
	Key

	// ScoredAt is the reference time the first page of the session was scored with.
	ScoredAt time.Time

	// Served is the number of items returned so far.
	Served int
}

// payload is the wire form of a Cursor.
type payload struct {
	Score     *float64 `cbor:"1,keyasint,omitempty"`
	CreatedAt int64    `cbor:"2,keyasint"`
	ID        []byte   `cbor:"3,keyasint"`
	ScoredAt  int64    `cbor:"4,keyasint"`
	Served    int      `cbor:"5,keyasint"`
}

// Codec encodes cursors into opaque tokens and back. Tokens are
// base64url(CBOR || keyed BLAKE2b checksum); a token minted with a different
// secret or altered in transit fails to decode.
type Codec struct {
	secret []byte
	dec    cbor.DecMode
}

// NewCodec creates a codec. The secret may be empty and at most 64 bytes.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) > blake2b.Size {
		return nil, fmt.Errorf("cursor secret longer than %d bytes", blake2b.Size)
	}
	dec, err := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return &Codec{secret: secret, dec: dec}, nil
}

// Encode returns the token for a cursor.
func (c *Codec) Encode(cursor *Cursor) (string, error) {
	p := payload{
		CreatedAt: cursor.CreatedAt.UnixNano(),
		ID:        cursor.ID[:],
		ScoredAt:  cursor.ScoredAt.UnixNano(),
		Served:    cursor.Served,
	}
	if cursor.HasScore {
		score := cursor.Score
		p.Score = &score
	}

	body, err := cbor.Marshal(p)
	if err != nil {
		return "", err
	}
	sum, err := c.checksum(body)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(append(body, sum...)), nil
}

// Decode parses a token. Every failure is reported as ErrInvalidCursor.
func (c *Codec) Decode(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	if len(raw) <= checksumSize {
		return nil, fmt.Errorf("%w: token too short", ErrInvalidCursor)
	}

	body, sum := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	want, err := c.checksum(body)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(sum, want) != 1 {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidCursor)
	}

	var p payload
	if err := c.dec.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	cursor := &Cursor{
		Key: Key{
			CreatedAt: time.Unix(0, p.CreatedAt).UTC(),
		},
		ScoredAt: time.Unix(0, p.ScoredAt).UTC(),
		Served:   p.Served,
	}
	copy(cursor.ID[:], p.ID)
	if p.Score != nil {
		cursor.Score = *p.Score
		cursor.HasScore = true
	}
	return cursor, nil
}

func (c *Codec) checksum(body []byte) ([]byte, error) {
	h, err := blake2b.New(checksumSize, c.secret)
	if err != nil {
		return nil, err
	}
	h.Write(body)
	return h.Sum(nil), nil
}

func (p *payload) validate() error {
	if len(p.ID) != 16 {
		return errors.New("malformed id")
	}
	if p.Served < 0 {
		return errors.New("negative offset")
	}
	if p.ScoredAt <= 0 {
		return errors.New("missing scoring time")
	}
	if p.Score != nil && (math.IsNaN(*p.Score) || *p.Score < 0 || *p.Score > 1) {
		return errors.New("score out of range")
	}
	return nil
}
