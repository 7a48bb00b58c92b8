package httpservice

import (
	"fmt"
	"net"
)

type Config struct {
	Port      uint32
	AuthUser  string
	AuthPass  string
	NoMetrics bool
}

func (c Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("missing port")
	}
	lis, err := net.Listen("tcp", c.address())
	if err != nil {
		return fmt.Errorf("invalid port: %s", err)
	}
	// nolint:all
	defer lis.Close()

	if len(c.AuthUser) <= 0 || len(c.AuthPass) <= 0 {
		return fmt.Errorf("missing admin credentials")
	}
	return nil
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}
