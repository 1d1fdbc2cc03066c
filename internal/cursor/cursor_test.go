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

package cursor

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	key, err := NewSigningKey()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	signer := NewSigner(key)

	token := signer.Encode(NamespaceTools, 12345)
	offset, err := signer.Decode(NamespaceTools, token)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if offset != 12345 {
		t.Fatalf("got %d, want 12345", offset)
	}
}

func TestDecodeEmptyCursorIsStartOfList(t *testing.T) {
	key, _ := NewSigningKey()
	signer := NewSigner(key)
	offset, err := signer.Decode(NamespaceTools, "")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if offset != 0 {
		t.Fatalf("got %d, want 0", offset)
	}
}

func TestDecodeRejectsWrongKey(t *testing.T) {
	keyA, _ := NewSigningKey()
	keyB, _ := NewSigningKey()
	token := NewSigner(keyA).Encode(NamespaceTools, 7)
	if _, err := NewSigner(keyB).Decode(NamespaceTools, token); err == nil {
		t.Fatalf("expected signature mismatch with a different key")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	key, _ := NewSigningKey()
	signer := NewSigner(key)
	if _, err := signer.Decode(NamespaceTools, "not-a-valid-cursor!!"); err == nil {
		t.Fatalf("expected malformed cursor to be rejected")
	}
}
