package mocks

//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/argo-sizing/internal/storage StateStore
//go:generate mockgen -destination=./mock_journal.go -package=mocks github.com/rxtech-lab/argo-sizing/internal/journal Journal
