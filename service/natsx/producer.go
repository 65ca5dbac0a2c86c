package natsx

import (
	"context"

	"github.com/pkg/errors"
)

// NatsxProducer 生产端
type NatsxProducer struct{ c *NatsxClient }

func NewNatsxProducer(c *NatsxClient) *NatsxProducer { return &NatsxProducer{c: c} }

// Publish 按 Biz 路由发送；subject 为空时用路由的 Subject
func (p *NatsxProducer) Publish(ctx context.Context, biz, subject string, data []byte, hdr map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, ok := p.c.route(biz)
	if !ok {
		return errors.Errorf("route not found: %s", biz)
	}
	if subject == "" {
		subject = r.Subject
	}
	return p.c.sendCore(subject, data, hdr)
}
