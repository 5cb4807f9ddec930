package graph

import (
	"context"
	"fmt"
	"time"

	"social-system/config"
	"social-system/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// rebuildBatchSize 重建时每批写入的节点/边数量
const rebuildBatchSize = 1000

// Neo4jGraph 基于 Neo4j 的关系图
type Neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
}

// NewNeo4jGraph 连接 Neo4j 并确保唯一约束存在
func NewNeo4jGraph(ctx context.Context, cfg config.GraphConfig) (*Neo4jGraph, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	g := &Neo4jGraph{driver: driver, database: cfg.Database, timeout: cfg.QueryTimeout}
	if g.timeout <= 0 {
		g.timeout = 2 * time.Second
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	if err := g.write(ctx, `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`, nil); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to ensure neo4j schema: %w", err)
	}

	logger.Info("neo4j图存储连接成功", zap.String("uri", cfg.URI))
	return g, nil
}

func (g *Neo4jGraph) Name() string { return "neo4j" }

// Close 关闭驱动
func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func (g *Neo4jGraph) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: g.database})
}

// write 执行一条写语句；单条语句在自动提交事务中原子执行
func (g *Neo4jGraph) write(ctx context.Context, query string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return fmt.Errorf("failed to consume result: %w", err)
	}
	return nil
}

// read 执行只读查询并逐条处理记录
func (g *Neo4jGraph) read(ctx context.Context, query string, params map[string]interface{}, fn func(*neo4j.Record)) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	for result.Next(ctx) {
		fn(result.Record())
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}
	return nil
}

// UpsertUser 幂等创建/更新用户节点
func (g *Neo4jGraph) UpsertUser(ctx context.Context, id uint, username string) error {
	query := `
		MERGE (u:User {id: $id})
		SET u.username = $username
	`
	return g.write(ctx, query, map[string]interface{}{
		"id":       int64(id),
		"username": username,
	})
}

// AddFriendEdge 一条语句同时创建两个方向的好友边
func (g *Neo4jGraph) AddFriendEdge(ctx context.Context, a, b uint) error {
	query := `
		MERGE (a:User {id: $a})
		MERGE (b:User {id: $b})
		MERGE (a)-[:FRIENDS_WITH]->(b)
		MERGE (b)-[:FRIENDS_WITH]->(a)
	`
	return g.write(ctx, query, map[string]interface{}{"a": int64(a), "b": int64(b)})
}

// RemoveFriendEdge 同时删除两个方向的好友边
func (g *Neo4jGraph) RemoveFriendEdge(ctx context.Context, a, b uint) error {
	query := `
		MATCH (:User {id: $a})-[r:FRIENDS_WITH]-(:User {id: $b})
		DELETE r
	`
	return g.write(ctx, query, map[string]interface{}{"a": int64(a), "b": int64(b)})
}

func (g *Neo4jGraph) addDirected(ctx context.Context, rel string, from, to uint) error {
	query := fmt.Sprintf(`
		MERGE (a:User {id: $from})
		MERGE (b:User {id: $to})
		MERGE (a)-[:%s]->(b)
	`, rel)
	return g.write(ctx, query, map[string]interface{}{"from": int64(from), "to": int64(to)})
}

func (g *Neo4jGraph) removeDirected(ctx context.Context, rel string, from, to uint) error {
	query := fmt.Sprintf(`
		MATCH (:User {id: $from})-[r:%s]->(:User {id: $to})
		DELETE r
	`, rel)
	return g.write(ctx, query, map[string]interface{}{"from": int64(from), "to": int64(to)})
}

func (g *Neo4jGraph) AddRequestEdge(ctx context.Context, from, to uint) error {
	return g.addDirected(ctx, EdgeRequested, from, to)
}

func (g *Neo4jGraph) RemoveRequestEdge(ctx context.Context, from, to uint) error {
	return g.removeDirected(ctx, EdgeRequested, from, to)
}

func (g *Neo4jGraph) AddBlockEdge(ctx context.Context, from, to uint) error {
	return g.addDirected(ctx, EdgeBlocked, from, to)
}

func (g *Neo4jGraph) RemoveBlockEdge(ctx context.Context, from, to uint) error {
	return g.removeDirected(ctx, EdgeBlocked, from, to)
}

// SuggestFriends 二度好友推荐
func (g *Neo4jGraph) SuggestFriends(ctx context.Context, userID uint, limit int) ([]Suggestion, error) {
	query := `
		MATCH (me:User {id: $userId})-[:FRIENDS_WITH]->(f:User)-[:FRIENDS_WITH]->(c:User)
		WHERE c <> me
			AND NOT EXISTS { (me)-[:FRIENDS_WITH]->(c) }
			AND NOT EXISTS { (me)-[:REQUESTED]-(c) }
			AND NOT EXISTS { (me)-[:BLOCKED]-(c) }
		RETURN c.id AS id, count(DISTINCT f) AS mutual
		ORDER BY mutual DESC, id ASC
		LIMIT $limit
	`

	var out []Suggestion
	err := g.read(ctx, query, map[string]interface{}{
		"userId": int64(userID),
		"limit":  int64(limit),
	}, func(record *neo4j.Record) {
		out = append(out, Suggestion{
			UserID:        uint(getInt64FromRecord(record, "id")),
			MutualFriends: getIntFromRecord(record, "mutual"),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FriendIDs 一跳好友
func (g *Neo4jGraph) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	query := `
		MATCH (:User {id: $userId})-[:FRIENDS_WITH]->(f:User)
		RETURN f.id AS id
		ORDER BY id
	`

	var ids []uint
	err := g.read(ctx, query, map[string]interface{}{"userId": int64(userID)}, func(record *neo4j.Record) {
		ids = append(ids, uint(getInt64FromRecord(record, "id")))
	})
	return ids, err
}

// Rebuild 清空并按快照重建整张图，在一个写事务内完成
func (g *Neo4jGraph) Rebuild(ctx context.Context, snap *Snapshot) error {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `MATCH (u:User) DETACH DELETE u`, nil); err != nil {
			return nil, err
		}

		for start := 0; start < len(snap.Users); start += rebuildBatchSize {
			end := min(start+rebuildBatchSize, len(snap.Users))
			users := make([]interface{}, 0, end-start)
			for _, u := range snap.Users[start:end] {
				users = append(users, map[string]interface{}{"id": int64(u.ID), "username": u.Username})
			}
			query := `
				UNWIND $users AS u
				MERGE (n:User {id: u.id})
				SET n.username = u.username
			`
			if _, err := tx.Run(ctx, query, map[string]interface{}{"users": users}); err != nil {
				return nil, err
			}
		}

		batches := []struct {
			query string
			edges []Edge
		}{
			{`UNWIND $edges AS e
			  MATCH (a:User {id: e.from}), (b:User {id: e.to})
			  MERGE (a)-[:FRIENDS_WITH]->(b)
			  MERGE (b)-[:FRIENDS_WITH]->(a)`, snap.Friendships},
			{`UNWIND $edges AS e
			  MATCH (a:User {id: e.from}), (b:User {id: e.to})
			  MERGE (a)-[:REQUESTED]->(b)`, snap.Requests},
			{`UNWIND $edges AS e
			  MATCH (a:User {id: e.from}), (b:User {id: e.to})
			  MERGE (a)-[:BLOCKED]->(b)`, snap.Blocks},
		}
		for _, b := range batches {
			for start := 0; start < len(b.edges); start += rebuildBatchSize {
				end := min(start+rebuildBatchSize, len(b.edges))
				if _, err := tx.Run(ctx, b.query, map[string]interface{}{"edges": edgeParams(b.edges[start:end])}); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild graph: %w", err)
	}
	return nil
}
