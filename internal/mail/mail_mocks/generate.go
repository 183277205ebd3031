package mail_mocks

//go:generate mockgen -source=../interfaces.go -destination=mail_mocks.go -package=mail_mocks
