package transport

// DeriveHealth folds scraper states into one status: any error makes the
// service unhealthy, otherwise any inactive scraper makes it degraded.
func DeriveHealth(scrapers map[string]ScraperState) HealthStatus {
	status := HealthHealthy
	for _, state := range scrapers {
		switch state {
		case ScraperError:
			return HealthUnhealthy
		case ScraperInactive:
			status = HealthDegraded
		}
	}
	return status
}
