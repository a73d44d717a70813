package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/noah-isme/library-fee-api/internal/models"
)

const legacyDateLayout = "2006-01-02"

// NewFirestoreClient opens a client for the legacy project. An empty credentials path falls back to
// application default credentials.
func NewFirestoreClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("open firestore client: %w", err)
	}
	return client, nil
}

// FirestoreStudentSource reads legacy student documents from a collection.
type FirestoreStudentSource struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStudentSource constructs a FirestoreStudentSource.
func NewFirestoreStudentSource(client *firestore.Client, collection string) *FirestoreStudentSource {
	if collection == "" {
		collection = "students"
	}
	return &FirestoreStudentSource{client: client, collection: collection}
}

// FetchStudents streams every document of the collection.
func (s *FirestoreStudentSource) FetchStudents(ctx context.Context) ([]models.LegacyStudent, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var students []models.LegacyStudent
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s documents: %w", s.collection, err)
		}
		students = append(students, LegacyStudentFromDocument(doc.Ref.ID, doc.Data()))
	}
	return students, nil
}

// LegacyStudentFromDocument maps a raw document onto a LegacyStudent. Older documents used
// "mobile" for the phone and "leftDate" for the exit date.
func LegacyStudentFromDocument(id string, data map[string]interface{}) models.LegacyStudent {
	student := models.LegacyStudent{
		DocumentID: id,
		Name:       stringField(data, "name"),
		Phone:      stringField(data, "phone", "mobile"),
		FatherName: stringField(data, "fatherName"),
		Address:    stringField(data, "address"),
		PhotoURL:   stringField(data, "photoUrl"),
		JoinDate:   dateField(data, "joinDate"),
		ExitDate:   dateField(data, "exitDate", "leftDate"),
		MonthlyFee: data["monthlyFee"],
		Status:     stringField(data, "status"),
		Payments:   data["payments"],
	}
	return student
}

func stringField(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func dateField(data map[string]interface{}, keys ...string) *time.Time {
	for _, key := range keys {
		switch v := data[key].(type) {
		case time.Time:
			if !v.IsZero() {
				d := time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
				return &d
			}
		case string:
			raw := strings.TrimSpace(v)
			if len(raw) >= len(legacyDateLayout) {
				raw = raw[:len(legacyDateLayout)]
			}
			if d, err := time.Parse(legacyDateLayout, raw); err == nil {
				return &d
			}
		}
	}
	return nil
}
