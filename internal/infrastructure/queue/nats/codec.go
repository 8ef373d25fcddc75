package nats

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/docverify/internal/core/domain"
)

func encodeRequest(req domain.VerificationRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal verification request: %w", err)
	}
	return payload, nil
}

func decodeRequest(data []byte) (domain.VerificationRequest, error) {
	var req domain.VerificationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.VerificationRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode verification request", err)
	}
	if req.SubjectID == "" || len(req.Uploaded) == 0 {
		return domain.VerificationRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode verification request", errors.New("subject and uploaded documents are required"))
	}
	return req, nil
}
