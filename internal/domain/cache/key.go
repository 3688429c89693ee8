package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/project"
)

// SliceFunc derives the part of project state a capability's output depends on.
type SliceFunc func(p *project.Project, history []conversation.Message) string

// slices maps each cacheable capability to its state slice. Capabilities not listed are not cached.
var slices = map[capability.Name]SliceFunc{
	capability.Verification:     decidedCount,
	capability.ConsistencyCheck: committedFingerprint,
	capability.Recording:        fullFingerprint,
	capability.Review:           fullFingerprint,
	capability.GapDetection:     stateCounts,
	capability.Development:      stateCounts,
}

// Cacheable reports whether results of name may be cached.
func Cacheable(name capability.Name) bool {
	_, ok := slices[name]
	return ok
}

// KeyFor builds the cache key for one invocation. ok is false for capabilities that are never cached.
func KeyFor(name capability.Name, message string, p *project.Project, history []conversation.Message) (key string, ok bool) {
	slice, ok := slices[name]
	if !ok {
		return "", false
	}
	return Key(name, message, slice(p, history)), true
}

// Key hashes the capability name, the normalized message and the state slice.
func Key(name capability.Name, message, slice string) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeMessage(message)))
	h.Write([]byte{0})
	h.Write([]byte(slice))
	return string(name) + ":" + hex.EncodeToString(h.Sum(nil))
}

// NormalizeMessage lowercases, trims and collapses whitespace.
func NormalizeMessage(message string) string {
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}

func decidedCount(p *project.Project, _ []conversation.Message) string {
	if p == nil {
		return "decided=0"
	}
	return fmt.Sprintf("decided=%d", len(p.ItemsInState(project.StateDecided)))
}

func committedFingerprint(p *project.Project, _ []conversation.Message) string {
	if p == nil {
		return ""
	}
	return p.Fingerprint(project.StateDecided, project.StateExploring)
}

func fullFingerprint(p *project.Project, history []conversation.Message) string {
	fp := ""
	if p != nil {
		fp = p.Fingerprint()
	}
	return fp + "|history=" + transcriptHash(history)
}

// transcriptHash covers role and content of every message in order.
func transcriptHash(history []conversation.Message) string {
	h := sha256.New()
	for _, m := range history {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func stateCounts(p *project.Project, _ []conversation.Message) string {
	if p == nil {
		return ""
	}
	counts := p.CountByState()
	keys := make([]string, 0, len(counts))
	for state, n := range counts {
		keys = append(keys, fmt.Sprintf("%s=%d", state, n))
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
