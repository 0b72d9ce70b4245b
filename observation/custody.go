// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package observation

import (
	"bufio"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// CustodyEntry is one append-only record in the hash-chained custody log
// (§6, §9 glossary "Custody log"): "append-only hash-chained record of
// model lifecycle events (build, scan, sign, deploy, promote)".
type CustodyEntry struct {
	Event    string `json:"event"`
	ModelID  string `json:"model_id"`
	AtUnix   int64  `json:"at_unix"`
	PrevHash string `json:"prev_hash"`
	Hash     string `json:"hash"`
	HMAC     string `json:"hmac"`
}

// hashableFields returns the bytes over which Hash and HMAC are computed:
// everything but the hash/hmac fields themselves, mirroring frame.Sign's
// "canonical bytes exclude sig" rule.
func (e CustodyEntry) hashableFields() []byte {
	return []byte(fmt.Sprintf("%s\x00%s\x00%d\x00%s", e.Event, e.ModelID, e.AtUnix, e.PrevHash))
}

// CustodyLog is an append-only, hash-chained JSON Lines file. Each entry's
// Hash commits to the previous entry's Hash, forming a tamper-evident
// chain; HMAC additionally authenticates the entry using the same
// HMAC-SHA256 construction as frame.Sign/Verify.
type CustodyLog struct {
	mu       sync.Mutex
	path     string
	key      []byte
	lastHash string
}

// OpenCustodyLog opens (creating if absent) the custody log at path and
// replays it to recover the last hash in the chain, so the process can
// append new entries continuous with whatever is already on disk.
func OpenCustodyLog(path string, hmacKey []byte) (*CustodyLog, error) {
	l := &CustodyLog{path: path, key: hmacKey}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("observation: open custody log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e CustodyEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("observation: malformed custody entry: %w", err)
		}
		l.lastHash = e.Hash
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("observation: scan custody log: %w", err)
	}
	return l, nil
}

// Append writes a new entry chained off the last one and returns it.
func (l *CustodyLog) Append(event, modelID string, atUnix int64) (CustodyEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := CustodyEntry{Event: event, ModelID: modelID, AtUnix: atUnix, PrevHash: l.lastHash}
	sum := sha256.Sum256(e.hashableFields())
	e.Hash = hex.EncodeToString(sum[:])

	mac := hmac.New(sha256.New, l.key)
	mac.Write([]byte(e.Hash))
	e.HMAC = hex.EncodeToString(mac.Sum(nil))

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return CustodyEntry{}, fmt.Errorf("observation: open custody log for append: %w", err)
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return CustodyEntry{}, fmt.Errorf("observation: marshal custody entry: %w", err)
	}
	b = append(b, '\n')
	if _, err := f.Write(b); err != nil {
		return CustodyEntry{}, fmt.Errorf("observation: write custody entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return CustodyEntry{}, fmt.Errorf("observation: fsync custody log: %w", err)
	}

	l.lastHash = e.Hash
	return e, nil
}

// VerifyChain reads the custody log from path and walks the hash chain,
// recomputing each entry's hash and HMAC. It returns the index of the
// first broken entry, or -1 if the whole chain verifies.
func VerifyChain(path string, hmacKey []byte) (brokenAt int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return -1, fmt.Errorf("observation: open custody log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	prevHash := ""
	idx := 0
	for scanner.Scan() {
		var e CustodyEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return idx, fmt.Errorf("observation: malformed custody entry: %w", err)
		}
		if e.PrevHash != prevHash {
			return idx, nil
		}
		sum := sha256.Sum256(e.hashableFields())
		wantHash := hex.EncodeToString(sum[:])
		if e.Hash != wantHash {
			return idx, nil
		}
		mac := hmac.New(sha256.New, hmacKey)
		mac.Write([]byte(e.Hash))
		wantHMAC := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(e.HMAC), []byte(wantHMAC)) {
			return idx, nil
		}
		prevHash = e.Hash
		idx++
	}
	if err := scanner.Err(); err != nil {
		return idx, fmt.Errorf("observation: scan custody log: %w", err)
	}
	return -1, nil
}
