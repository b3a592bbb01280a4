package xqueue

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMakeKey(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	k1 := MakeKey(7, at, "student-1", "p1_2_1")
	if k1 != MakeKey(7, at, "student-1", "p1_2_1") {
		t.Error("key must be deterministic for identical inputs")
	}
	if len(k1) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(k1))
	}

	distinct := []string{
		MakeKey(8, at, "student-1", "p1_2_1"),
		MakeKey(7, at.Add(time.Second), "student-1", "p1_2_1"),
		MakeKey(7, at, "student-2", "p1_2_1"),
		MakeKey(7, at, "student-1", "p1_3_1"),
	}
	for i, k := range distinct {
		if k == k1 {
			t.Errorf("variant %d collided with the base key", i)
		}
	}
}

func TestEncodeStudentInfo(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)
	var info StudentInfo
	if err := json.Unmarshal([]byte(EncodeStudentInfo("anon-9", at)), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info.AnonymousStudentID != "anon-9" {
		t.Errorf("student id = %q", info.AnonymousStudentID)
	}
	if info.SubmissionTime != "20240301123045" {
		t.Errorf("submission time = %q", info.SubmissionTime)
	}
}

func TestRequestWireFormat(t *testing.T) {
	b, err := json.Marshal(Request{
		Header: Header{Key: "k", QueueName: "q"},
		Body:   Body{GraderPayload: "{}", StudentResponse: "src"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{"xqueue_header", "xqueue_body", "lms_key", "queue_name", "grader_payload", "student_response"} {
		if !strings.Contains(string(b), field) {
			t.Errorf("request json missing %q: %s", field, b)
		}
	}
}
