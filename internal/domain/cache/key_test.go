package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brainstorm-api/internal/domain/cache"
	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/project"
)

func TestNormalizeMessage(t *testing.T) {
	assert.Equal(t, "we decided on go", cache.NormalizeMessage("  We   decided\ton GO "))
}

func TestKey_NormalizedMessagesShareKey(t *testing.T) {
	a := cache.Key(capability.Verification, "Yes, Go!", "decided=1")
	b := cache.Key(capability.Verification, "  yes,   go! ", "decided=1")
	assert.Equal(t, a, b)

	c := cache.Key(capability.Recording, "Yes, Go!", "decided=1")
	assert.NotEqual(t, a, c, "capability name is part of the key")
}

func TestKeyFor_VerificationOnlyDependsOnDecidedCount(t *testing.T) {
	p1 := &project.Project{Items: []project.Item{
		{ID: "a", State: project.StateDecided},
		{ID: "b", State: project.StateExploring},
	}}
	p2 := &project.Project{Items: []project.Item{
		{ID: "z", State: project.StateDecided},
		{ID: "y", State: project.StateParked},
		{ID: "x", State: project.StateParked},
	}}

	k1, _ := cache.KeyFor(capability.Verification, "ok", p1, nil)
	k2, _ := cache.KeyFor(capability.Verification, "ok", p2, nil)
	assert.Equal(t, k1, k2)

	p2.Items = append(p2.Items, project.Item{ID: "w", State: project.StateDecided})
	k3, _ := cache.KeyFor(capability.Verification, "ok", p2, nil)
	assert.NotEqual(t, k1, k3)
}

func TestKeyFor_RecordingDependsOnItemVersionsAndHistory(t *testing.T) {
	item := project.Item{ID: "a", State: project.StateExploring, VersionHistory: []project.Version{{VersionNumber: 1}}}
	p := &project.Project{Items: []project.Item{item}}
	history := []conversation.Message{{ID: "m1"}}

	k1, _ := cache.KeyFor(capability.Recording, "idea", p, history)

	p.Items[0].VersionHistory = append(p.Items[0].VersionHistory, project.Version{VersionNumber: 2})
	k2, _ := cache.KeyFor(capability.Recording, "idea", p, history)
	assert.NotEqual(t, k1, k2)

	k3, _ := cache.KeyFor(capability.Recording, "idea", p, append(history, conversation.Message{ID: "m2"}))
	assert.NotEqual(t, k2, k3)
}

func TestKeyFor_NonCacheableCapabilities(t *testing.T) {
	for _, name := range []capability.Name{capability.Conversation, capability.IntentClassification, capability.Clarification} {
		_, ok := cache.KeyFor(name, "hi", &project.Project{}, nil)
		assert.False(t, ok, "%s should not be cached", name)
		assert.False(t, cache.Cacheable(name))
	}
	assert.True(t, cache.Cacheable(capability.ConsistencyCheck))
}

func TestKeyFor_RecordingDependsOnTranscriptContent(t *testing.T) {
	p := &project.Project{ID: "p"}
	postgres := []conversation.Message{
		{ID: "m1", Role: conversation.RoleUser, Content: "where do we store data?"},
		{ID: "m2", Role: conversation.RoleAssistant, Content: "Use Postgres for storage?"},
	}
	redis := []conversation.Message{
		{ID: "m1", Role: conversation.RoleUser, Content: "where do we store data?"},
		{ID: "m2", Role: conversation.RoleAssistant, Content: "Use Redis for storage?"},
	}

	for _, name := range []capability.Name{capability.Recording, capability.Review} {
		k1, _ := cache.KeyFor(name, "yes", p, postgres)
		k2, _ := cache.KeyFor(name, "yes", p, redis)
		assert.NotEqual(t, k1, k2, "%s key must change with transcript content", name)

		k3, _ := cache.KeyFor(name, "yes", p, append([]conversation.Message(nil), postgres...))
		assert.Equal(t, k1, k3)
	}
}
