package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/service"
)

type step struct {
	Name       string
	Method     string
	Path       string
	Role       models.UserRole
	Body       interface{}
	WantStatus int
	WantCode   string
}

type outcome struct {
	Step     step
	Status   int
	Code     string
	Duration time.Duration
	Error    error
}

func (o outcome) ok() bool {
	if o.Error != nil || o.Status != o.Step.WantStatus {
		return false
	}
	return o.Step.WantCode == "" || o.Step.WantCode == o.Code
}

func main() {
	var (
		base      string
		secret    string
		teacherID string
		bookingID string
		date      string
		timeout   time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&secret, "jwt-secret", "dev_secret", "HS256 secret shared with the server")
	flag.StringVar(&teacherID, "teacher", "", "Teacher ID to exercise (required)")
	flag.StringVar(&bookingID, "booking", "", "Confirmed booking ID to open a settlement for (optional)")
	flag.StringVar(&date, "date", time.Now().UTC().AddDate(0, 0, 7).Format(models.DateLayout), "Future date to write availability for")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	if teacherID == "" {
		log.Fatal("-teacher is required")
	}

	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: secret, AccessTokenExpiry: 10 * time.Minute})
	tokens := map[models.UserRole]string{}
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleTeacher, models.RoleStudent} {
		token, _, err := auth.IssueToken(teacherID, role, "")
		if err != nil {
			log.Fatalf("failed to sign %s token: %v", role, err)
		}
		tokens[role] = token
	}

	steps := []step{
		{Name: "health", Method: http.MethodGet, Path: "/health", WantStatus: http.StatusOK},
		{Name: "ready", Method: http.MethodGet, Path: "/ready", WantStatus: http.StatusOK},
		{Name: "anonymous timetable", Method: http.MethodGet, Path: "/teachers/" + teacherID + "/timetable?date=" + date, WantStatus: http.StatusUnauthorized},
		{Name: "student cannot write", Method: http.MethodPut, Path: "/teachers/availability", Role: models.RoleStudent,
			Body: map[string]interface{}{"date": date, "timeSlots": []int{18}}, WantStatus: http.StatusForbidden},
		{Name: "slot out of range", Method: http.MethodPut, Path: "/teachers/availability", Role: models.RoleTeacher,
			Body: map[string]interface{}{"date": date, "timeSlots": []int{18, 48}}, WantStatus: http.StatusBadRequest, WantCode: "SLOT_OUT_OF_RANGE"},
		{Name: "past date", Method: http.MethodPut, Path: "/teachers/availability", Role: models.RoleTeacher,
			Body: map[string]interface{}{"date": "2000-01-01", "timeSlots": []int{18}}, WantStatus: http.StatusBadRequest, WantCode: "INVALID_DATE"},
		{Name: "set availability", Method: http.MethodPut, Path: "/teachers/availability", Role: models.RoleTeacher,
			Body: map[string]interface{}{"date": date, "timeSlots": []int{20, 18, 19, 19}}, WantStatus: http.StatusOK},
		{Name: "timetable", Method: http.MethodGet, Path: "/teachers/" + teacherID + "/timetable?date=" + date, Role: models.RoleStudent, WantStatus: http.StatusOK},
		{Name: "teacher cannot run payouts", Method: http.MethodPost, Path: "/settlements/payout-runs", Role: models.RoleTeacher, WantStatus: http.StatusForbidden},
		{Name: "payout run", Method: http.MethodPost, Path: "/settlements/payout-runs", Role: models.RoleAdmin, WantStatus: http.StatusOK},
	}
	if bookingID != "" {
		steps = append(steps,
			step{Name: "open settlement", Method: http.MethodPost, Path: "/settlements", Role: models.RoleAdmin,
				Body: map[string]string{"bookingId": bookingID}, WantStatus: http.StatusCreated},
			step{Name: "reopen settlement", Method: http.MethodPost, Path: "/settlements", Role: models.RoleAdmin,
				Body: map[string]string{"bookingId": bookingID}, WantStatus: http.StatusOK},
			step{Name: "premature payout", Method: http.MethodPost, Path: "/settlements/" + bookingID + "/events", Role: models.RoleAdmin,
				Body: map[string]string{"event": "payoutRunExecuted"}, WantStatus: http.StatusConflict, WantCode: "INVALID_TRANSITION"},
		)
	}

	client := &http.Client{Timeout: timeout}
	failures := 0
	fmt.Println("Smoke Report")
	fmt.Println("============")
	for _, s := range steps {
		res := perform(client, base, tokens[s.Role], s)
		status := "OK"
		if !res.ok() {
			status = "FAIL"
			failures++
		}
		fmt.Printf("[%s] %s: %s %s -> %d %s (%s)\n", status, s.Name, s.Method, s.Path, res.Status, res.Code, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
	}

	fmt.Printf("Failures: %d/%d\n", failures, len(steps))
	if failures > 0 {
		os.Exit(1)
	}
}

func perform(client *http.Client, base, token string, s step) outcome {
	res := outcome{Step: s}

	var body io.Reader
	if s.Body != nil {
		payload, err := json.Marshal(s.Body)
		if err != nil {
			res.Error = err
			return res
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(s.Method, strings.TrimRight(base, "/")+s.Path, body)
	if err != nil {
		res.Error = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Role != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	var envelope struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
		res.Code = envelope.Error.Code
	}
	return res
}
