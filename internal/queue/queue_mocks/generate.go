package queue_mocks

//go:generate mockgen -source=../interfaces.go -destination=queue_mocks.go -package=queue_mocks
