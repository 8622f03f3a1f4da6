package dyndns

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// chromeConsole implements console over a headless Chrome tab driven
// with chromedp.
type chromeConsole struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

func (o *RouterObserver) startChrome(ctx context.Context) (console, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	if o.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(o.logger.Printf))
	cancel := func() {
		cancelTask()
		cancelAlloc()
	}

	// Start the browser now so a missing or broken Chrome install
	// fails the pass before any element interaction.
	if err := chromedp.Run(taskCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("error starting browser: %w", err)
	}
	return &chromeConsole{ctx: taskCtx, cancel: cancel, timeout: o.timeoutOrDefault()}, nil
}

func (o *RouterObserver) timeoutOrDefault() time.Duration {
	if o.Timeout <= 0 {
		return 30 * time.Second
	}
	return o.Timeout
}

// waitBounded runs fn under a deadline so that a console interaction
// can never hang past the session's wait budget.
func waitBounded(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(tctx)
}

func (c *chromeConsole) run(actions ...chromedp.Action) error {
	return waitBounded(c.ctx, c.timeout, func(ctx context.Context) error {
		return chromedp.Run(ctx, actions...)
	})
}

func (c *chromeConsole) Navigate(url string) error {
	return c.run(chromedp.Navigate(url))
}

func (c *chromeConsole) WaitClickable(loc Locator) error {
	return c.run(
		chromedp.WaitVisible(loc.Value, queryOpt(loc)),
		chromedp.WaitEnabled(loc.Value, queryOpt(loc)),
	)
}

func (c *chromeConsole) WaitPresent(loc Locator) error {
	return c.run(chromedp.WaitReady(loc.Value, queryOpt(loc)))
}

func (c *chromeConsole) Click(loc Locator) error {
	return c.run(chromedp.Click(loc.Value, queryOpt(loc)))
}

func (c *chromeConsole) ClearAndType(loc Locator, text string) error {
	return c.run(
		chromedp.Click(loc.Value, queryOpt(loc)),
		chromedp.Clear(loc.Value, queryOpt(loc)),
		chromedp.SendKeys(loc.Value, text, queryOpt(loc)),
	)
}

func (c *chromeConsole) ClickAt(loc Locator) error {
	// locate and click share one deadline so the whole step stays
	// within the session's wait budget
	return waitBounded(c.ctx, c.timeout, func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Run(ctx, chromedp.Nodes(loc.Value, &nodes, queryOpt(loc))); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return fmt.Errorf("no node found for %s", loc)
		}
		// Dispatch the click at the node's box position instead of
		// calling click on the element itself; the console renders an
		// overlay that intercepts direct clicks here.
		return chromedp.Run(ctx, chromedp.MouseClickNode(nodes[0]))
	})
}

func (c *chromeConsole) Text(loc Locator) (string, error) {
	var text string
	err := c.run(chromedp.Text(loc.Value, &text, queryOpt(loc)))
	return text, err
}

func (c *chromeConsole) Close() error {
	// Cancel waits for the browser process to exit cleanly; the
	// context cancels then release the allocator.
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	return err
}

func queryOpt(loc Locator) chromedp.QueryOption {
	switch loc.By {
	case ByID:
		return chromedp.ByID
	default:
		return chromedp.ByQuery
	}
}
