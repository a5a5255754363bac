package mysql

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
  id         VARCHAR(64)   NOT NULL,
  sku        VARCHAR(128)  NOT NULL,
  name       VARCHAR(255)  NOT NULL,
  price      DECIMAL(12,2) NOT NULL,
  stock      INT           NOT NULL,
  created_at DATETIME(6)   NOT NULL,
  updated_at DATETIME(6)   NOT NULL,
  PRIMARY KEY (id),
  UNIQUE KEY uq_products_sku (sku),
  KEY idx_products_created (created_at, id),
  CONSTRAINT chk_products_stock CHECK (stock >= 0)
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS orders (
  id               VARCHAR(64)  NOT NULL,
  product_id       VARCHAR(64)  NOT NULL,
  quantity         INT          NOT NULL,
  reserved         INT          NOT NULL,
  status           VARCHAR(16)  NOT NULL,
  payment_event_id VARCHAR(128) NULL,
  created_at       DATETIME(6)  NOT NULL,
  updated_at       DATETIME(6)  NOT NULL,
  PRIMARY KEY (id),
  KEY idx_orders_product_status (product_id, status),
  KEY idx_orders_status_created (status, created_at, id),
  KEY idx_orders_created (created_at, id)
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS processed_events (
  event_id     VARCHAR(128) NOT NULL,
  order_id     VARCHAR(64)  NOT NULL,
  outcome      VARCHAR(16)  NOT NULL,
  processed_at DATETIME(6)  NOT NULL,
  PRIMARY KEY (event_id),
  KEY idx_processed_events_at (processed_at)
) ENGINE=InnoDB`,
}
