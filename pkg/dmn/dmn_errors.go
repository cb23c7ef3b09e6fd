package dmn

import (
	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
)

func decisionNotFound(decisionId string) error {
	return dmnerr.New(dmnerr.DecisionNotFound, "Decision ID [%v] doesnt exist.", decisionId)
}

func decisionServiceNotFound(serviceId string) error {
	return dmnerr.New(dmnerr.DecisionServiceNotFound, "Decision service ID [%v] doesnt exist.", serviceId)
}

// newExecutionErrorf uses fmt.Sprintf(format, a...) to format the message
func newExecutionErrorf(format string, a ...any) error {
	return dmnerr.New(dmnerr.Execution, format, a...)
}
