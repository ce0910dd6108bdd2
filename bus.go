package ddcci

import (
	"go.uber.org/zap"
	"periph.io/x/conn/v3"
)

// dumpConn logs every transfer at debug level.
type dumpConn struct {
	conn.Conn
	log *zap.Logger
}

func (c *dumpConn) Tx(w, r []byte) error {
	if len(w) != 0 {
		if ce := c.log.Check(zap.DebugLevel, "write"); ce != nil {
			ce.Write(zap.Int("length", len(w)), zap.String("hex", Dump(w)))
		}
	}
	if err := c.Conn.Tx(w, r); err != nil {
		c.log.Debug("transfer failed", zap.Error(err))
		return err
	}
	if len(r) != 0 {
		if ce := c.log.Check(zap.DebugLevel, "read"); ce != nil {
			ce.Write(zap.Int("length", len(r)), zap.String("hex", Dump(r)))
		}
	}
	return nil
}
