package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kondate-assistant/internal/infrastructure/config"
	"kondate-assistant/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// InventoryClient 在庫服務 HTTP 客戶端。
// 在庫變動頻度低，Redis 有效時走 read-through 快取。
type InventoryClient struct {
	client *resty.Client
	cache  *redis.Client
	cfg    config.RedisConfig
}

// NewInventoryClient 創建在庫客戶端
func NewInventoryClient(invCfg config.InventoryConfig, redisCfg config.RedisConfig) (*InventoryClient, error) {
	client := resty.New().
		SetBaseURL(invCfg.BaseURL).
		SetTimeout(invCfg.Timeout)

	c := &InventoryClient{
		client: client,
		cfg:    redisCfg,
	}

	if redisCfg.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr: redisCfg.Addr,
		})
		// 測試連接
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.cache = rdb
	}

	return c, nil
}

// inventoryResponse 在庫服務回應
type inventoryResponse struct {
	Items []common.InventoryItem `json:"items"`
}

// GetInventory 取得用戶現在的在庫
func (c *InventoryClient) GetInventory(ctx context.Context, userID string) ([]common.InventoryItem, error) {
	key := fmt.Sprintf("inventory:%s", userID)

	if c.cache != nil {
		if data, err := c.cache.Get(ctx, key).Bytes(); err == nil {
			var items []common.InventoryItem
			if err := json.Unmarshal(data, &items); err == nil {
				common.LogCacheHit("inventory", key)
				return items, nil
			}
		} else if err != redis.Nil {
			common.LogWarn("在庫快取讀取失敗", zap.Error(err))
		} else {
			common.LogCacheMiss("inventory", key)
		}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("user_id", userID).
		Get("/api/v1/inventory")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("inventory service returned error: %s", resp.Status())
	}

	var body inventoryResponse
	if err := common.ParseJSONBytes(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse inventory response: %w", err)
	}

	if c.cache != nil {
		if data, err := json.Marshal(body.Items); err == nil {
			if err := c.cache.Set(ctx, key, data, c.cfg.TTL).Err(); err != nil {
				common.LogWarn("在庫快取寫入失敗", zap.Error(err))
			}
		}
	}

	return body.Items, nil
}

// Close 關閉客戶端
func (c *InventoryClient) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}
