package aws

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const conditionalCheckFailed = "ConditionalCheckFailed"

// IsConditionFailed reports whether err is a failed ConditionExpression on a
// single-item write.
func IsConditionFailed(err error) bool {
	var cc *types.ConditionalCheckFailedException
	if errors.As(err, &cc) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

// FailedConditions returns the indexes of transaction items whose condition
// failed. ok is false when err is not a cancelled transaction.
func FailedConditions(err error) (idx []int, ok bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil, false
	}
	for i, r := range tce.CancellationReasons {
		if r.Code != nil && *r.Code == conditionalCheckFailed {
			idx = append(idx, i)
		}
	}
	return idx, true
}

// FirstFailedCondition is FailedConditions reduced to the lowest index, or -1.
func FirstFailedCondition(err error) int {
	idx, ok := FailedConditions(err)
	if !ok || len(idx) == 0 {
		return -1
	}
	return idx[0]
}
