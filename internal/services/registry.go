package services

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	MediaService       MediaService
	ScreeningService   ScreeningService
	ApplicationService ApplicationService
}
