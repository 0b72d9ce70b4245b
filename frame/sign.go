// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package frame

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// KeyManager is a small rotating key ring for HMAC-SHA256 frame signing
// (§4.1: "a key selected from a small key manager (seeded at startup;
// per-key rotation is in scope)"). Verification accepts any key still
// inside its grace window, so a frame signed just before a rotation still
// verifies.
type KeyManager struct {
	mu    sync.RWMutex
	keys  map[string]keyEntry
	active string
	grace time.Duration
}

type keyEntry struct {
	secret   []byte
	rotatedAt time.Time
	retired  bool
}

// NewKeyManager seeds a key manager with one active key under keyID, kept
// valid for `grace` past its rotation out of active use.
func NewKeyManager(keyID string, secret []byte, grace time.Duration) *KeyManager {
	return &KeyManager{
		keys:   map[string]keyEntry{keyID: {secret: secret, rotatedAt: time.Time{}}},
		active: keyID,
		grace:  grace,
	}
}

// Rotate installs newKeyID as the active signing key, retiring the
// previous key's entry with a rotation timestamp so it still verifies
// until the grace window elapses.
func (km *KeyManager) Rotate(newKeyID string, secret []byte) {
	km.mu.Lock()
	defer km.mu.Unlock()
	if prev, ok := km.keys[km.active]; ok {
		prev.retired = true
		prev.rotatedAt = time.Now()
		km.keys[km.active] = prev
	}
	km.keys[newKeyID] = keyEntry{secret: secret}
	km.active = newKeyID
}

// ActiveKeyID returns the id of the key currently used for signing.
func (km *KeyManager) ActiveKeyID() string {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.active
}

// secretFor returns the secret for keyID, along with whether it is still
// within its verification window (active, or retired but inside grace).
func (km *KeyManager) secretFor(keyID string) ([]byte, bool) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	e, ok := km.keys[keyID]
	if !ok {
		return nil, false
	}
	if !e.retired {
		return e.secret, true
	}
	return e.secret, time.Since(e.rotatedAt) < km.grace
}

// Sign computes the canonical-form HMAC-SHA256 signature of f using the
// key manager's active key and sets f.Sig to "<keyID>:<hexmac>".
func Sign(f *Frame, km *KeyManager) error {
	canon, err := Canonicalize(f)
	if err != nil {
		return err
	}
	keyID := km.ActiveKeyID()
	secret, _ := km.secretFor(keyID)
	mac := hmac.New(sha256.New, secret)
	mac.Write(canon)
	f.Sig = keyID + ":" + hex.EncodeToString(mac.Sum(nil))
	return nil
}

// Verify checks f.Sig against the canonical form, using whichever key in
// km produced it. It returns false (without error) on any mismatch or
// unknown/expired key. Verify increments no counter; no
// frame_signature_fail_total metric is registered.
func Verify(f *Frame, km *KeyManager) (bool, error) {
	sig := f.Sig
	idx := indexByte(sig, ':')
	if idx < 0 {
		return false, nil
	}
	keyID, macHex := sig[:idx], sig[idx+1:]
	secret, ok := km.secretFor(keyID)
	if !ok {
		return false, nil
	}
	canon, err := Canonicalize(f)
	if err != nil {
		return false, err
	}
	expectedMAC := hmac.New(sha256.New, secret)
	expectedMAC.Write(canon)
	expected := hex.EncodeToString(expectedMAC.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(macHex)), nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
