package models

import (
	"encoding/json"
	"fmt"
)

type InstructionKind string

const (
	InstructionUpdateSetup InstructionKind = "update_setup"
	InstructionSnapshot    InstructionKind = "snapshot"
)

// Instruction is the closed set of directives a device can receive. It is
// decoded exactly once at the channel boundary; unknown kinds are rejected
// there rather than leaking to consumers.
type Instruction struct {
	Kind InstructionKind `json:"instruction"`
	URL  string          `json:"url,omitempty"`
}

func UpdateSetupInstruction() Instruction {
	return Instruction{Kind: InstructionUpdateSetup}
}

func SnapshotInstruction(url string) Instruction {
	return Instruction{Kind: InstructionSnapshot, URL: url}
}

func DecodeInstruction(data []byte) (Instruction, error) {
	var in Instruction
	if err := json.Unmarshal(data, &in); err != nil {
		return Instruction{}, fmt.Errorf("failed to decode instruction: %w", err)
	}
	switch in.Kind {
	case InstructionUpdateSetup:
		return Instruction{Kind: InstructionUpdateSetup}, nil
	case InstructionSnapshot:
		if in.URL == "" {
			return Instruction{}, fmt.Errorf("snapshot instruction missing url")
		}
		return in, nil
	default:
		return Instruction{}, fmt.Errorf("unknown instruction kind %q", in.Kind)
	}
}

func (i Instruction) Encode() ([]byte, error) {
	return json.Marshal(i)
}
