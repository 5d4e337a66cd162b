package terrain

import "github.com/aukilabs/jord/models"

const (
	ErrTypePoolExhausted    = models.ErrTypePoolExhausted
	ErrTypeEvaluatorFailed  = "evaluator_failed"
	ErrTypeGeneratorFailed  = "generator_failed"
	ErrTypeContractViolated = "contract_violation"
	ErrTypeInvalidIndex     = "invalid_index"
)
