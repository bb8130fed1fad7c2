package elevenlabs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Voice describes one entry of the account's voice catalog.
type Voice struct {
	ID       string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

// VoiceRegistry is an explicitly-owned, explicitly-refreshed lookup table of
// the account's voices. It holds no ambient global state: callers decide when
// the catalog is fetched and when it is considered stale.
type VoiceRegistry struct {
	client *Client

	mu     sync.RWMutex
	byName map[string]Voice
	byID   map[string]Voice
	voices []Voice
}

// NewVoiceRegistry creates an empty registry bound to client. It performs no
// I/O until Refresh is called.
func NewVoiceRegistry(client *Client) *VoiceRegistry {
	return &VoiceRegistry{
		client: client,
		byName: make(map[string]Voice),
		byID:   make(map[string]Voice),
	}
}

// Refresh replaces the registry contents with the catalog fetched from the
// API. On error the previous contents are kept.
func (r *VoiceRegistry) Refresh(ctx context.Context) error {
	var resp voicesResponse
	if err := r.client.get(ctx, "/v1/voices", &resp); err != nil {
		return fmt.Errorf("refresh voice catalog: %w", err)
	}

	byName := make(map[string]Voice, len(resp.Voices))
	byID := make(map[string]Voice, len(resp.Voices))
	for _, v := range resp.Voices {
		byName[strings.ToLower(v.Name)] = v
		byID[v.ID] = v
	}

	r.mu.Lock()
	r.byName = byName
	r.byID = byID
	r.voices = resp.Voices
	r.mu.Unlock()
	return nil
}

// Get looks a voice up by case-insensitive name.
func (r *VoiceRegistry) Get(name string) (Voice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byName[strings.ToLower(name)]
	return v, ok
}

// GetByID looks a voice up by its identifier.
func (r *VoiceRegistry) GetByID(id string) (Voice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[id]
	return v, ok
}

// List returns the catalog sorted by name.
func (r *VoiceRegistry) List() []Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Voice, len(r.voices))
	copy(out, r.voices)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of cataloged voices.
func (r *VoiceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.voices)
}
