// Package model defines the stored user and task documents.
package model

const (
	// UsersCollection holds one document per uid.
	UsersCollection = "users"

	// TasksCollection holds one document per task id.
	TasksCollection = "tasks"

	// TaskOwnerField is the field tasks are listed by.
	TaskOwnerField = "userId"
)

// User is a registered user. Created on first login, never modified.
type User struct {
	UID         string `json:"uid" firestore:"uid"`
	DisplayName string `json:"displayName" firestore:"displayName"`
	Email       string `json:"email" firestore:"email"`
}

// Task is a caller-owned task. All attributes are opaque to the server.
type Task struct {
	ID          string `json:"id" firestore:"id"`
	UserID      string `json:"userId" firestore:"userId"`
	Title       string `json:"title" firestore:"title"`
	Description string `json:"description" firestore:"description"`
	Category    string `json:"category" firestore:"category"`
	DueDate     string `json:"dueDate" firestore:"dueDate"`
	Status      string `json:"status" firestore:"status"`
}

var (
	userFields = []string{"uid", "displayName", "email"}
	taskFields = []string{"id", "userId", "title", "description", "category", "dueDate", "status"}
)

// UserDocument picks the user fields out of a request body.
// Values are kept as sent; absent fields are stored as null.
func UserDocument(body map[string]any) map[string]any {
	return pick(body, userFields)
}

// TaskDocument picks the task fields out of a request body.
// Values are kept as sent; absent fields are stored as null.
func TaskDocument(body map[string]any) map[string]any {
	return pick(body, taskFields)
}

// StringField returns body[key] if it is a string, otherwise "".
func StringField(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

func pick(body map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = body[f]
	}
	return out
}
