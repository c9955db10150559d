package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaStatements_Constraints(t *testing.T) {
	schema := strings.Join(SchemaStatements, "\n")

	tests := []struct {
		name    string
		snippet string
		present bool
	}{
		{name: "voter reg_no unique", snippet: ConstraintVoterRegNo + " UNIQUE (reg_no)", present: true},
		{name: "voter token unique", snippet: ConstraintVoterToken, present: true},
		{name: "position title unique", snippet: ConstraintPositionTitle, present: true},
		{name: "one vote per position", snippet: ConstraintVoteVoterPosition, present: true},
		{name: "candidate reg_no may repeat", snippet: "candidates_reg_no_key", present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.present, strings.Contains(schema, tt.snippet))
		})
	}
}
