package contracts

import (
	"encoding/json"
	"fmt"
)

// JobTypeKnowledgeUpdate folds journal conversations into the knowledge base.
const JobTypeKnowledgeUpdate = "knowledge.update"

// ChatMessage is one conversation message referenced by a knowledge update.
type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content,omitempty"`
	Sequence  int    `json:"sequence,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// KnowledgeUpdatePayload is the payload schema for knowledge.update jobs.
type KnowledgeUpdatePayload struct {
	JournalReference  string        `json:"journal_reference"`
	Messages          []ChatMessage `json:"messages"`
	RequestedByUserID string        `json:"requested_by_user_id"`
}

// ToMap converts the payload to its canonical map form for the envelope.
func (p KnowledgeUpdatePayload) ToMap() map[string]any {
	b, _ := json.Marshal(p)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// DecodeKnowledgeUpdatePayload parses and validates a payload map.
func DecodeKnowledgeUpdatePayload(payload map[string]any) (KnowledgeUpdatePayload, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return KnowledgeUpdatePayload{}, fmt.Errorf("encode payload: %w", err)
	}
	var p KnowledgeUpdatePayload
	if err := json.Unmarshal(b, &p); err != nil {
		return KnowledgeUpdatePayload{}, fmt.Errorf("decode knowledge.update payload: %w", err)
	}
	if err := p.validate(); err != nil {
		return KnowledgeUpdatePayload{}, err
	}
	return p, nil
}

// ValidateKnowledgeUpdatePayload is the registry hook for knowledge.update.
func ValidateKnowledgeUpdatePayload(payload map[string]any) error {
	_, err := DecodeKnowledgeUpdatePayload(payload)
	return err
}

func (p KnowledgeUpdatePayload) validate() error {
	if p.JournalReference == "" {
		return fmt.Errorf("journal_reference is required")
	}
	if p.RequestedByUserID == "" {
		return fmt.Errorf("requested_by_user_id is required")
	}
	if len(p.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	for i, m := range p.Messages {
		if m.Role == "" {
			return fmt.Errorf("messages[%d].role is required", i)
		}
	}
	return nil
}
