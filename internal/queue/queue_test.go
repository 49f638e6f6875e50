package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/topicradar/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRedis はredisCommandsのフェイク実装。
// go-redisの結果ヘルパーでコマンド結果を組み立てる。
type fakeRedis struct {
	pushed    []string
	pushedKey string
	popValue  string
	popErr    error
	length    int64
	lenErr    error
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.pushedKey = key
	for _, v := range values {
		f.pushed = append(f.pushed, string(v.([]byte)))
	}
	return redis.NewIntResult(int64(len(f.pushed)), nil)
}

func (f *fakeRedis) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	if f.popErr != nil {
		return redis.NewStringSliceResult(nil, f.popErr)
	}
	return redis.NewStringSliceResult([]string{keys[0], f.popValue}, nil)
}

func (f *fakeRedis) LLen(ctx context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(f.length, f.lenErr)
}

func TestQueue_Enqueue(t *testing.T) {
	fake := &fakeRedis{}
	q := NewQueue(fake, "executions", testLogger())

	jobID, err := q.Enqueue(context.Background(), "topic-1", model.InitiatorUser)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if jobID == "" {
		t.Error("ジョブIDが空です")
	}
	if fake.pushedKey != "executions" {
		t.Errorf("キュー名 = %q, want executions", fake.pushedKey)
	}
	if len(fake.pushed) != 1 {
		t.Fatalf("投入件数 = %d, want 1", len(fake.pushed))
	}

	var job Job
	if err := json.Unmarshal([]byte(fake.pushed[0]), &job); err != nil {
		t.Fatalf("投入されたジョブのデコードに失敗: %v", err)
	}
	if job.ID != jobID {
		t.Errorf("job.ID = %q, want %q", job.ID, jobID)
	}
	if job.TopicID != "topic-1" || job.Initiator != model.InitiatorUser {
		t.Errorf("ジョブの内容が不正です: %+v", job)
	}
}

func TestQueue_Dequeue(t *testing.T) {
	job := Job{ID: "job-1", TopicID: "topic-1", Initiator: model.InitiatorPeriodic}
	data, _ := json.Marshal(job)
	fake := &fakeRedis{popValue: string(data)}
	q := NewQueue(fake, "executions", testLogger())

	got, err := q.Dequeue(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if got == nil {
		t.Fatal("ジョブが返るべきです")
	}
	if got.ID != "job-1" || got.TopicID != "topic-1" || got.Initiator != model.InitiatorPeriodic {
		t.Errorf("ジョブの内容が不正です: %+v", got)
	}
}

func TestQueue_Dequeue_Timeout(t *testing.T) {
	fake := &fakeRedis{popErr: redis.Nil}
	q := NewQueue(fake, "executions", testLogger())

	got, err := q.Dequeue(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("タイムアウトはエラーではありません: %v", err)
	}
	if got != nil {
		t.Errorf("タイムアウト時はnilが返るべきです: %+v", got)
	}
}

func TestQueue_Dequeue_Error(t *testing.T) {
	fake := &fakeRedis{popErr: errors.New("connection refused")}
	q := NewQueue(fake, "executions", testLogger())

	if _, err := q.Dequeue(context.Background(), time.Second); err == nil {
		t.Fatal("エラーが返るべきです")
	}
}

func TestQueue_Depth(t *testing.T) {
	fake := &fakeRedis{length: 7}
	q := NewQueue(fake, "executions", testLogger())

	depth, err := q.Depth(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if depth != 7 {
		t.Errorf("depth = %d, want 7", depth)
	}
}
