package dto

type ListJobsQuery struct {
	IncludeCompleted bool `query:"include_completed"`
}
