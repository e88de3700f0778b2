package client

import "fmt"

// Chase represents a chase item returned by the API.
type Chase struct {
	ID             string `json:"id"`
	ClientRef      string `json:"client_ref"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	ValueTier      string `json:"value_tier"`
	ChaseCount     int    `json:"chase_count"`
	ProviderName   string `json:"provider_name,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Blocking       bool   `json:"blocking"`
	DaysOverdue    int    `json:"days_overdue"`
	CreatedAt      string `json:"created_at"`
	DueAt          string `json:"due_at,omitempty"`
	LastChasedAt   string `json:"last_chased_at,omitempty"`
	AcknowledgedAt string `json:"acknowledged_at,omitempty"`
}

// Recommendation represents a next-chase recommendation returned by the API.
type Recommendation struct {
	ItemID      string `json:"item_id"`
	ClientRef   string `json:"client_ref"`
	ChaseType   string `json:"chase_type"`
	Priority    string `json:"priority"`
	DaysOverdue int    `json:"days_overdue"`
	ChaseCount  int    `json:"chase_count"`
	Channel     string `json:"channel"`
	Timing      string `json:"timing"`
	Message     string `json:"message"`
	Rationale   string `json:"rationale,omitempty"`
}

func printChase(chase *Chase) {
	fmt.Printf("ID: %s\n", chase.ID)
	fmt.Printf("Client: %s\n", chase.ClientRef)
	fmt.Printf("Type: %s\n", chase.Type)
	fmt.Printf("Status: %s\n", chase.Status)
	fmt.Printf("Value tier: %s\n", chase.ValueTier)
	fmt.Printf("Chase count: %d\n", chase.ChaseCount)
	if chase.ProviderName != "" {
		fmt.Printf("Provider: %s\n", chase.ProviderName)
	}
	if chase.Subject != "" {
		fmt.Printf("Subject: %s\n", chase.Subject)
	}
	if chase.Blocking {
		fmt.Println("Blocking: yes")
	}
	if chase.DaysOverdue > 0 {
		fmt.Printf("Days overdue: %d\n", chase.DaysOverdue)
	}
	if chase.DueAt != "" {
		fmt.Printf("Due: %s\n", chase.DueAt)
	}
	if chase.LastChasedAt != "" {
		fmt.Printf("Last chased: %s\n", chase.LastChasedAt)
	}
	if chase.AcknowledgedAt != "" {
		fmt.Printf("Acknowledged: %s\n", chase.AcknowledgedAt)
	}
	fmt.Printf("Created: %s\n", chase.CreatedAt)
}
