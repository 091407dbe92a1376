package config

// IssueTracker represents the type of work tracker to use
type IssueTracker string

const (
	TrackerAzureDevOps IssueTracker = "azure-devops"
)
