package echoapi

import (
	"encoding/json"

	"github.com/trezcool/examguard/core/exam"
)

type (
	violationRequest struct {
		Kind   string          `json:"kind" validate:"required,violationkind"`
		Detail json.RawMessage `json:"detail"`
	}

	submitRequest struct {
		Answers []exam.AnswerInput `json:"answers" validate:"dive"`
		Reason  string             `json:"reason" validate:"omitempty,endreason"`
	}
)
