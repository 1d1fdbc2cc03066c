// Copyright 2024 Google LLC
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

// Package cursor implements the opaque, signed pagination tokens used by
// every *.list method. It is its own package (rather than living in
// registry or session) so both can depend on it without a cycle: session
// owns a signer per conversation, and registry verifies/mints cursors
// against whichever signer the dispatcher passes it.
package cursor

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

const macLen = 16

// DefaultPageSize is the number of entries returned per list page absent
// any other configuration.
const DefaultPageSize = 100

// Namespace distinguishes the four list methods so a cursor minted by one
// can never be replayed against another.
type Namespace string

const (
	NamespaceTools             Namespace = "tools"
	NamespacePrompts           Namespace = "prompts"
	NamespaceResources         Namespace = "resources"
	NamespaceResourceTemplates Namespace = "resourceTemplates"
)

// Signer mints and verifies the opaque pagination cursors described by the
// pagination component: base64url(offset_varint || HMAC-SHA256(key,
// namespace||offset_varint)[:16]). Each session owns one signer keyed by
// its own random signing key, so a cursor minted by one session is
// rejected by any other.
type Signer struct {
	key []byte
}

// NewSigningKey generates a fresh random key suitable for a new session.
func NewSigningKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("unable to generate cursor signing key: %w", err)
	}
	return key, nil
}

// NewSigner wraps a signing key (typically a session's).
func NewSigner(key []byte) *Signer {
	return &Signer{key: key}
}

// Encode mints an opaque cursor representing "resume after offset" within
// the given namespace.
func (s *Signer) Encode(ns Namespace, offset uint64) string {
	var varintBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(varintBuf[:], offset)
	offsetBytes := varintBuf[:n]

	mac := s.mac(ns, offsetBytes)

	buf := make([]byte, n+macLen)
	copy(buf, offsetBytes)
	copy(buf[n:], mac)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Decode verifies and unpacks a cursor previously minted by Encode. Any
// verification failure (malformed token, wrong signing key, truncated
// payload) returns an error the caller maps to -32602 invalid params.
func (s *Signer) Decode(ns Namespace, token string) (uint64, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("cursor: malformed encoding: %w", err)
	}
	offset, n := binary.Uvarint(raw)
	if n <= 0 {
		return 0, fmt.Errorf("cursor: malformed offset")
	}
	if len(raw) != n+macLen {
		return 0, fmt.Errorf("cursor: malformed length")
	}
	offsetBytes := raw[:n]
	gotMAC := raw[n:]
	wantMAC := s.mac(ns, offsetBytes)
	if !hmac.Equal(gotMAC, wantMAC) {
		return 0, fmt.Errorf("cursor: signature mismatch")
	}
	return offset, nil
}

func (s *Signer) mac(ns Namespace, offsetBytes []byte) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(ns))
	h.Write(offsetBytes)
	return h.Sum(nil)[:macLen]
}
