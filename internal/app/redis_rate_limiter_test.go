package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisRateLimiterDisabled(t *testing.T) {
	var nilLimiter *RedisRateLimiter
	if count, retry, err := nilLimiter.ConsumeRateLimit(context.Background(), "login", "a@b.com", 5, time.Minute); err != nil || count != 0 || retry != 0 {
		t.Fatalf("expected nil limiter to be a no-op, got %d %d %v", count, retry, err)
	}

	noClient := NewRedisRateLimiter(nil, "")
	if noClient.prefix != "schoolfees:rate_limit" {
		t.Fatalf("expected default prefix, got %q", noClient.prefix)
	}
	if count, _, err := noClient.ConsumeRateLimit(context.Background(), "login", "a@b.com", 5, time.Minute); err != nil || count != 0 {
		t.Fatalf("expected limiter without client to be a no-op, got %d %v", count, err)
	}
}

func TestRateLimitSubjects(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "local phone", got: PhoneSubject("024 412 3456"), want: "phone:233244123456"},
		{name: "international phone", got: PhoneSubject("+233244123456"), want: "phone:233244123456"},
		{name: "dashed phone", got: PhoneSubject("0244-123-456"), want: "phone:233244123456"},
		{name: "empty phone", got: PhoneSubject(" - "), want: ""},
		{name: "charge reference", got: ChargeSubject(" T123 "), want: "charge:T123"},
		{name: "empty reference", got: ChargeSubject(""), want: ""},
		{name: "username", got: UsernameSubject(" head@school.edu "), want: "user:head@school.edu"},
		{name: "empty username", got: UsernameSubject("  "), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, tt.got)
			}
		})
	}
}

func TestRedisRateLimiterIntegration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	limiter := NewRedisRateLimiter(client, "schoolfees:test:")
	subject := uuid.NewString()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, retry, err := limiter.ConsumeRateLimit(ctx, "login", subject, 2, time.Minute)
		if err != nil {
			t.Fatalf("consume: %v", err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
		if retry < 1 || retry > 60 {
			t.Fatalf("expected retry-after within the window, got %d", retry)
		}
	}

	// Subjects are trimmed and case-insensitive.
	count, _, err := limiter.ConsumeRateLimit(ctx, "login", " "+strings.ToUpper(subject)+" ", 2, time.Minute)
	if err != nil || count != 4 {
		t.Fatalf("expected shared counter, got %d %v", count, err)
	}

	// Phone spellings share a counter within the phone scope only.
	phone := fmt.Sprintf("024%07d", time.Now().UnixNano()%10000000)
	for _, spelling := range []string{phone, "233" + phone[1:]} {
		if _, _, err := limiter.ConsumeRateLimit(ctx, ScopeUSSDPhone, PhoneSubject(spelling), 3, time.Minute); err != nil {
			t.Fatalf("consume phone: %v", err)
		}
	}
	count, _, err = limiter.ConsumeRateLimit(ctx, ScopeUSSDPhone, PhoneSubject("+233 "+phone[1:]), 3, time.Minute)
	if err != nil || count != 3 {
		t.Fatalf("expected the third charge on one phone to count 3, got %d %v", count, err)
	}
	count, _, err = limiter.ConsumeRateLimit(ctx, ScopeOTP, PhoneSubject(phone), 3, time.Minute)
	if err != nil || count != 1 {
		t.Fatalf("expected scopes to keep separate counters, got %d %v", count, err)
	}
}
