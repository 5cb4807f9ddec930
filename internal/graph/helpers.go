package graph

import (
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	return int(getInt64FromRecord(record, key))
}

// edgeParams 将边转换为 UNWIND 参数
func edgeParams(edges []Edge) []interface{} {
	out := make([]interface{}, 0, len(edges))
	for _, e := range edges {
		out = append(out, map[string]interface{}{
			"from": int64(e.From),
			"to":   int64(e.To),
		})
	}
	return out
}

// sortSuggestions 共同好友数降序，ID升序
func sortSuggestions(list []Suggestion) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].MutualFriends != list[j].MutualFriends {
			return list[i].MutualFriends > list[j].MutualFriends
		}
		return list[i].UserID < list[j].UserID
	})
}
