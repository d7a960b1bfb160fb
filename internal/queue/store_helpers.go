package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, status, retry_count, error_message, source_ref, transcoded_ref, stored_ref, transcript, analysis, subject_id, language, duration_seconds, awaiting_input, created_at, updated_at, started_at, completed_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		statusStr    string
		retryCount   int
		errorMessage sql.NullString
		sourceRef    sql.NullString
		transcoded   sql.NullString
		storedRef    sql.NullString
		transcript   sql.NullString
		analysis     sql.NullString
		subjectID    sql.NullString
		language     sql.NullString
		duration     sql.NullFloat64
		awaiting     sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&retryCount,
		&errorMessage,
		&sourceRef,
		&transcoded,
		&storedRef,
		&transcript,
		&analysis,
		&subjectID,
		&language,
		&duration,
		&awaiting,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		Status:          Status(statusStr),
		RetryCount:      retryCount,
		ErrorMessage:    errorMessage.String,
		SourceRef:       sourceRef.String,
		TranscodedRef:   transcoded.String,
		StoredRef:       storedRef.String,
		Transcript:      transcript.String,
		Analysis:        analysis.String,
		SubjectID:       subjectID.String,
		Language:        language.String,
		DurationSeconds: duration.Float64,
		AwaitingInput:   awaiting.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
