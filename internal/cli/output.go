package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		printUser(v)
	case Rankings:
		printRankings(v)
	case RegisterResult:
		fmt.Println(v.Message)
		printUser(v.NewPlayer)
	case LoginResult:
		fmt.Println(v.Message)
		fmt.Printf("User: %s (%s) [%s]\n", v.User.Username, v.User.ID, v.User.Role)
		fmt.Printf("Token: %s\n", v.Token)
	case LogoutResult:
		fmt.Println(v.Message)
	case UpdateResult:
		fmt.Println(v.Message)
		printUser(v.Player)
	case MessageResult:
		fmt.Println(v.Message)
	case AcceptedResult:
		fmt.Printf("Status: %s\n", v.Status)
	case PlayResult:
		fmt.Printf("Clicks sent: %d\n", v.Clicks)
		fmt.Printf("Click count: %d (%s)\n", v.Last.NewClickCount, v.Last.Status)
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
		fmt.Printf("Storage: %s\n", v.Storage)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	ClickCount int64  `json:"clickCount"`
	Status     string `json:"status"`
}

// Rankings is the player list ordered by click count
type Rankings []User

// RegisterResult response type
type RegisterResult struct {
	Message   string `json:"message"`
	NewPlayer User   `json:"newPlayer"`
}

// LoginResult response type
type LoginResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

// LogoutResult response type
type LogoutResult struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// UpdateResult response type
type UpdateResult struct {
	Message string `json:"message"`
	Player  User   `json:"player"`
}

// MessageResult response type
type MessageResult struct {
	Message string `json:"message"`
}

// AcceptedResult acknowledges an inbound live event
type AcceptedResult struct {
	Status string `json:"status"`
}

// ClickUpdate is the payload of an updateClickCount event
type ClickUpdate struct {
	UserID        string `json:"userId"`
	NewClickCount int64  `json:"newClickCount"`
	Status        string `json:"status"`
}

// LiveError is the payload of an error event
type LiveError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PlayResult summarises a live play session
type PlayResult struct {
	Clicks int         `json:"clicks"`
	Last   ClickUpdate `json:"last"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Error   string `json:"error,omitempty"`
}

func printUser(u User) {
	fmt.Printf("User: %s (%s)\n", u.Username, u.ID)
	fmt.Printf("Role: %s\n", u.Role)
	fmt.Printf("Status: %s\n", u.Status)
	fmt.Printf("Clicks: %d\n", u.ClickCount)
}

func printRankings(r Rankings) {
	if len(r) == 0 {
		fmt.Println("No players yet")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tUSERNAME\tCLICKS\tSTATUS\tID")
	for i, u := range r {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i+1, u.Username, u.ClickCount, u.Status, u.ID)
	}
	_ = w.Flush()
}
