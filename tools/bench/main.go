package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// 压测工具：注册一批用户并连成好友链，然后并发请求动态流和好友推荐接口

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	base string
	http *http.Client
}

func (c *client) do(ctx context.Context, method, path, token string, body interface{}) (*apiResponse, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Code != 0 {
		return &out, fmt.Errorf("%s %s: code=%d %s", method, path, out.Code, out.Message)
	}
	return &out, nil
}

type benchUser struct {
	ID    uint
	Token string
}

// -------------------- 数据准备 --------------------

func register(ctx context.Context, c *client, run string, n int) ([]benchUser, error) {
	users := make([]benchUser, n)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			name := fmt.Sprintf("bench_%s_%d", run, i)
			resp, err := c.do(ctx, http.MethodPost, "/api/v1/users/register", "", map[string]string{
				"username": name,
				"email":    name + "@bench.local",
				"password": "bench-pass",
			})
			if err != nil {
				return err
			}
			var data struct {
				User struct {
					ID uint `json:"id"`
				} `json:"user"`
				AccessToken string `json:"access_token"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return err
			}
			users[i] = benchUser{ID: data.User.ID, Token: data.AccessToken}
			return nil
		})
	}
	return users, eg.Wait()
}

// befriendChain 相邻用户互为好友，形成 0-1-2-...-n 链，每个用户都有二度好友
func befriendChain(ctx context.Context, c *client, users []benchUser) error {
	for i := 0; i+1 < len(users); i++ {
		a, b := users[i], users[i+1]
		resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/friends/%d/request", b.ID), a.Token, nil)
		if err != nil {
			return err
		}
		var data struct {
			RequestID uint `json:"request_id"`
		}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return err
		}
		if _, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/friends/requests/%d/accept", data.RequestID), b.Token, nil); err != nil {
			return err
		}
		if _, err := c.do(ctx, http.MethodPost, "/api/v1/posts", a.Token, map[string]string{
			"text_body": fmt.Sprintf("post from user %d", a.ID),
		}); err != nil {
			return err
		}
	}
	return nil
}

// -------------------- 并发请求统计 --------------------

type latencyStats struct {
	mu        sync.Mutex
	latencies []time.Duration
	failed    int
}

func (s *latencyStats) add(ok bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.failed++
		return
	}
	s.latencies = append(s.latencies, latency)
}

func (s *latencyStats) report(name string, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Printf("\n=== %s ===\n", name)
	total := len(s.latencies) + s.failed
	fmt.Printf("总请求: %d 成功: %d 失败: %d\n", total, len(s.latencies), s.failed)
	if len(s.latencies) == 0 {
		return
	}
	sort.Slice(s.latencies, func(i, j int) bool { return s.latencies[i] < s.latencies[j] })
	pct := func(p float64) time.Duration {
		return s.latencies[int(float64(len(s.latencies)-1)*p)]
	}
	fmt.Printf("延迟 p50: %v p95: %v p99: %v 最大: %v\n", pct(0.5), pct(0.95), pct(0.99), s.latencies[len(s.latencies)-1])
	if took > 0 {
		fmt.Printf("QPS: %.2f\n", float64(len(s.latencies))/took.Seconds())
	}
}

func runBench(ctx context.Context, c *client, users []benchUser, path string, concurrency, perWorker int) {
	stats := &latencyStats{}
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				u := users[(w+j)%len(users)]
				t := time.Now()
				_, err := c.do(ctx, http.MethodGet, path, u.Token, nil)
				stats.add(err == nil, time.Since(t))
			}
		}(w)
	}
	wg.Wait()

	stats.report(path, time.Since(start))
}

// -------------------- 入口 --------------------

func main() {
	base := flag.String("base", "http://localhost:8080", "server base url")
	nUsers := flag.Int("users", 20, "number of users to create")
	concurrency := flag.Int("c", 10, "concurrent workers")
	perWorker := flag.Int("n", 50, "requests per worker")
	flag.Parse()

	if *nUsers < 3 {
		fmt.Println("users must be >= 3")
		os.Exit(1)
	}

	c := &client{base: *base, http: &http.Client{Timeout: 8 * time.Second}}
	ctx := context.Background()
	run := uuid.NewString()[:8]

	fmt.Println("=== 社交系统并发测试 ===")
	fmt.Printf("开始时间: %s 目标: %s 用户: %d 并发: %d 每协程请求: %d\n",
		time.Now().Format("2006-01-02 15:04:05"), *base, *nUsers, *concurrency, *perWorker)

	users, err := register(ctx, c, run, *nUsers)
	if err != nil {
		fmt.Println("注册用户失败:", err)
		os.Exit(1)
	}
	if err := befriendChain(ctx, c, users); err != nil {
		fmt.Println("建立好友关系失败:", err)
		os.Exit(1)
	}

	runBench(ctx, c, users, "/api/v1/feed?page=1&limit=20", *concurrency, *perWorker)
	runBench(ctx, c, users, "/api/v1/friends/suggestions", *concurrency, *perWorker)

	fmt.Println("\n=== 测试完成 ===")
}
