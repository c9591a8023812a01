// pkg/ethrpc/pool.go
package ethrpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Pool rotates eth_call traffic across several RPC endpoints. A call that fails on
// one endpoint is retried on the next before being reported as an error.
type Pool struct {
	logger  *zap.Logger
	clients []*ethclient.Client
	mutex   sync.Mutex
	index   int
}

// Dial connects to every reachable endpoint in rpcList. Unreachable endpoints are
// skipped with a warning; at least one connection is required.
func Dial(ctx context.Context, rpcList []string, logger *zap.Logger) (*Pool, error) {
	var clients []*ethclient.Client
	for _, rpcURL := range rpcList {
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			logger.Warn("RPC endpoint unreachable", zap.String("endpoint", rpcURL), zap.Error(err))
			continue
		}
		logger.Info("🔌 Connected to RPC", zap.String("endpoint", rpcURL))
		clients = append(clients, client)
	}
	if len(clients) == 0 {
		return nil, errors.New("no reachable RPC endpoint")
	}

	return &Pool{
		logger:  logger.Named("rpc_pool"),
		clients: clients,
	}, nil
}

func (p *Pool) next() *ethclient.Client {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	client := p.clients[p.index]
	p.index = (p.index + 1) % len(p.clients)
	return client
}

// CallContract implements ethereum.ContractCaller with per-endpoint failover.
func (p *Pool) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < p.Size(); attempt++ {
		out, err := p.next().CallContract(ctx, call, blockNumber)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		p.logger.Debug("Endpoint failed, rotating", zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, fmt.Errorf("all endpoints failed: %w", lastErr)
}

func (p *Pool) Size() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.clients)
}

func (p *Pool) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for _, client := range p.clients {
		client.Close()
	}
	p.clients = nil
}
