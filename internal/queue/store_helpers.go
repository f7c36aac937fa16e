package queue

import (
	"database/sql"
	"strings"
)

func scanRequest(scanner interface{ Scan(dest ...any) error }, axis Axis) (*Request, error) {
	var (
		id           int64
		entity       string
		activity     string
		argument     sql.NullString
		attempts     int
		failures     int
		createdRaw   sql.NullString
		completedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &entity, &activity, &argument, &attempts, &failures, &createdRaw, &completedRaw); err != nil {
		return nil, err
	}
	req := &Request{
		ID:        id,
		Axis:      axis,
		Entity:    entity,
		Activity:  Activity(activity),
		Argument:  argument.String,
		Attempts:  attempts,
		Failures:  failures,
		CreatedAt: parseTime(createdRaw.String),
	}
	if completedRaw.Valid && completedRaw.String != "" {
		ts := parseTime(completedRaw.String)
		req.CompletedAt = &ts
	}
	return req, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
