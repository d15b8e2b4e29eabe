package config

import "fmt"

// ControlPlaneDSN returns the DSN for the shared control-plane database.
func ControlPlaneDSN() string {
	c := Config().DB
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.DBName, c.User, c.Password, c.SSLMode)
}

// TenantDSN returns the DSN for one client's isolated database using the
// credentials stored in its registry record.
func TenantDSN(host string, port int, dbName, user, password string) string {
	sslMode := Config().TenantDB.SSLMode
	connectTimeout := int(Config().TenantDB.GetConnectTimeoutOrDefault().Seconds())
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		host, port, dbName, user, password, sslMode, connectTimeout)
}
