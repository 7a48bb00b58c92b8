package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ordlaunch/launchpad/common"
	"github.com/ordlaunch/launchpad/common/keychain"
	"github.com/ordlaunch/launchpad/internal/core/application"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	"github.com/ordlaunch/launchpad/internal/infrastructure/db"
	"github.com/ordlaunch/launchpad/internal/infrastructure/explorer/mempool"
	timescheduler "github.com/ordlaunch/launchpad/internal/infrastructure/scheduler/gocron"
	walletsvc "github.com/ordlaunch/launchpad/internal/infrastructure/wallet"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	supportedDbs = supportedType{
		"sqlite": {},
	}
	supportedKVDbs = supportedType{
		"badger": {},
	}
	supportedFeePriorities = supportedType{
		string(domain.FeePriorityFastest):  {},
		string(domain.FeePriorityHalfHour): {},
		string(domain.FeePriorityHour):     {},
		string(domain.FeePriorityEconomy):  {},
		string(domain.FeePriorityMinimum):  {},
	}
)

type Config struct {
	Datadir   string
	Port      uint32
	LogLevel  int
	NoMetrics bool
	AuthUser  string
	AuthPass  string `json:"-"`

	DbType   string
	DbDir    string
	KVDbType string
	KVDbDir  string

	NetworkName     string
	Network         common.Network `json:"-"`
	MempoolURL      string
	ExplorerTimeout time.Duration
	FeePriority     domain.FeePriority

	MinUtxoValue         int64
	PaddingValue         int64
	UtxoLockTTL          time.Duration
	MintSignatureTimeout time.Duration
	ExpiryInterval       time.Duration

	PlatformMnemonic    string `json:"-"`
	PlatformPrivateKey  string `json:"-"`
	PlatformAddressType keychain.AddressType
	PlatformFeeAddress  string
	MintPlatformFee     int64
	MarketplaceFeeBps   int64

	repo      ports.RepoManager
	explorer  ports.Explorer
	wallet    ports.WalletService
	scheduler ports.SchedulerService
	svc       application.Service
	adminSvc  application.AdminService
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir              = "DATADIR"
	Port                 = "PORT"
	LogLevel             = "LOG_LEVEL"
	NoMetrics            = "NO_METRICS"
	AuthUser             = "AUTH_USER"
	AuthPass             = "AUTH_PASS"
	DbType               = "DB_TYPE"
	KVDbType             = "KV_DB_TYPE"
	Network              = "NETWORK"
	MempoolURL           = "MEMPOOL_URL"
	ExplorerTimeout      = "EXPLORER_TIMEOUT"
	FeePriority          = "FEE_PRIORITY"
	MinUtxoValue         = "MIN_UTXO_VALUE"
	PaddingValue         = "PADDING_VALUE"
	UtxoLockTTL          = "UTXO_LOCK_TTL"
	MintSignatureTimeout = "MINT_SIGNATURE_TIMEOUT"
	ExpiryInterval       = "EXPIRY_INTERVAL"
	PlatformMnemonic     = "PLATFORM_MNEMONIC"
	PlatformPrivateKey   = "PLATFORM_PRIVATE_KEY"
	PlatformAddressType  = "PLATFORM_ADDRESS_TYPE"
	PlatformFeeAddress   = "PLATFORM_FEE_ADDRESS"
	MintPlatformFee      = "MINT_PLATFORM_FEE"
	MarketplaceFeeBps    = "MARKETPLACE_FEE_BPS"

	defaultDatadir              = btcutil.AppDataDir("launchpadd", false)
	DefaultPort                 = 8080
	defaultLogLevel             = 4
	defaultDbType               = "sqlite"
	defaultKVDbType             = "badger"
	defaultNetwork              = common.MainNet.Name
	defaultExplorerTimeout      = 15 * time.Second
	defaultFeePriority          = string(domain.FeePriorityHalfHour)
	defaultMinUtxoValue         = 10000
	defaultPaddingValue         = 600
	defaultUtxoLockTTL          = 10 * time.Minute
	defaultMintSignatureTimeout = 15 * time.Minute
	defaultExpiryInterval       = time.Minute
	defaultPlatformAddressType  = keychain.AddressTypeP2WPKH.String()
	defaultMarketplaceFeeBps    = 200
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("LAUNCHPAD")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(KVDbType, defaultKVDbType)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(ExplorerTimeout, defaultExplorerTimeout)
	viper.SetDefault(FeePriority, defaultFeePriority)
	viper.SetDefault(MinUtxoValue, defaultMinUtxoValue)
	viper.SetDefault(PaddingValue, defaultPaddingValue)
	viper.SetDefault(UtxoLockTTL, defaultUtxoLockTTL)
	viper.SetDefault(MintSignatureTimeout, defaultMintSignatureTimeout)
	viper.SetDefault(ExpiryInterval, defaultExpiryInterval)
	viper.SetDefault(PlatformAddressType, defaultPlatformAddressType)
	viper.SetDefault(MarketplaceFeeBps, defaultMarketplaceFeeBps)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	net, err := common.NetworkFromString(viper.GetString(Network))
	if err != nil {
		return nil, err
	}
	mempoolURL := viper.GetString(MempoolURL)
	if len(mempoolURL) <= 0 {
		mempoolURL = net.MempoolURL
	}

	addrType, err := keychain.ParseAddressType(viper.GetString(PlatformAddressType))
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(viper.GetString(Datadir), "db")

	return &Config{
		Datadir:              viper.GetString(Datadir),
		Port:                 viper.GetUint32(Port),
		LogLevel:             viper.GetInt(LogLevel),
		NoMetrics:            viper.GetBool(NoMetrics),
		AuthUser:             viper.GetString(AuthUser),
		AuthPass:             viper.GetString(AuthPass),
		DbType:               viper.GetString(DbType),
		DbDir:                dbPath,
		KVDbType:             viper.GetString(KVDbType),
		KVDbDir:              dbPath,
		NetworkName:          net.Name,
		Network:              net,
		MempoolURL:           mempoolURL,
		ExplorerTimeout:      viper.GetDuration(ExplorerTimeout),
		FeePriority:          domain.FeePriority(strings.ToLower(viper.GetString(FeePriority))),
		MinUtxoValue:         viper.GetInt64(MinUtxoValue),
		PaddingValue:         viper.GetInt64(PaddingValue),
		UtxoLockTTL:          viper.GetDuration(UtxoLockTTL),
		MintSignatureTimeout: viper.GetDuration(MintSignatureTimeout),
		ExpiryInterval:       viper.GetDuration(ExpiryInterval),
		PlatformMnemonic:     viper.GetString(PlatformMnemonic),
		PlatformPrivateKey:   viper.GetString(PlatformPrivateKey),
		PlatformAddressType:  addrType,
		PlatformFeeAddress:   viper.GetString(PlatformFeeAddress),
		MintPlatformFee:      viper.GetInt64(MintPlatformFee),
		MarketplaceFeeBps:    viper.GetInt64(MarketplaceFeeBps),
	}, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// Validate checks the settings and wires every service. It must be called
// before AppService and AdminService.
func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedKVDbs.supports(c.KVDbType) {
		return fmt.Errorf("kv db type not supported, please select one of: %s", supportedKVDbs)
	}
	if !supportedFeePriorities.supports(string(c.FeePriority)) {
		return fmt.Errorf(
			"fee priority not supported, please select one of: %s", supportedFeePriorities,
		)
	}
	if c.PaddingValue <= 0 {
		return fmt.Errorf("padding value must be greater than 0")
	}
	if c.MinUtxoValue <= c.PaddingValue {
		return fmt.Errorf("min utxo value must be greater than padding value")
	}
	if c.UtxoLockTTL <= 0 {
		return fmt.Errorf("utxo lock ttl must be greater than 0")
	}
	if c.MintSignatureTimeout <= 0 {
		return fmt.Errorf("mint signature timeout must be greater than 0")
	}
	if len(c.PlatformMnemonic) > 0 && len(c.PlatformPrivateKey) > 0 {
		return fmt.Errorf("platform mnemonic and private key are mutually exclusive")
	}

	if err := c.walletService(); err != nil {
		return err
	}
	if len(c.PlatformFeeAddress) <= 0 {
		c.PlatformFeeAddress = c.wallet.Address()
		log.Infof("platform fee address defaults to %s", c.PlatformFeeAddress)
	}

	if err := c.explorerService(); err != nil {
		return err
	}
	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.appService(); err != nil {
		return err
	}
	return c.adminService()
}

func (c *Config) AppService() application.Service {
	return c.svc
}

func (c *Config) AdminService() application.AdminService {
	return c.adminSvc
}

func (c *Config) Explorer() ports.Explorer {
	return c.explorer
}

func (c *Config) applicationConfig() application.Config {
	return application.Config{
		Network:              c.Network,
		FeePriority:          c.FeePriority,
		MinUtxoValue:         c.MinUtxoValue,
		PaddingValue:         c.PaddingValue,
		UtxoLockTTL:          c.UtxoLockTTL,
		MintSignatureTimeout: c.MintSignatureTimeout,
		ExpiryInterval:       c.ExpiryInterval,
		PlatformFeeAddress:   c.PlatformFeeAddress,
		MintPlatformFee:      c.MintPlatformFee,
		MarketplaceFeeBps:    c.MarketplaceFeeBps,
	}
}

func (c *Config) walletService() error {
	var svc ports.WalletService
	var err error
	switch {
	case len(c.PlatformMnemonic) > 0:
		svc, err = walletsvc.NewService(
			c.PlatformMnemonic, "", c.PlatformAddressType, c.Network.Params,
		)
	case len(c.PlatformPrivateKey) > 0:
		svc, err = walletsvc.NewServiceFromPrivateKey(
			c.PlatformPrivateKey, c.PlatformAddressType, c.Network.Params,
		)
	default:
		return fmt.Errorf("missing platform mnemonic or private key")
	}
	if err != nil {
		return fmt.Errorf("failed to load platform wallet: %s", err)
	}

	c.wallet = svc
	return nil
}

func (c *Config) explorerService() error {
	svc, err := mempool.NewExplorer(c.MempoolURL, c.ExplorerTimeout)
	if err != nil {
		return err
	}
	c.explorer = svc
	return nil
}

func (c *Config) repoManager() error {
	logger := log.New()
	logger.SetLevel(log.WarnLevel)

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		KVStoreType:     c.KVDbType,
		DataStoreConfig: []interface{}{c.DbDir},
		KVStoreConfig:   []interface{}{c.KVDbDir, logger},
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) schedulerService() error {
	c.scheduler = timescheduler.NewScheduler()
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.applicationConfig(), c.repo, c.explorer, c.scheduler,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func (c *Config) adminService() error {
	svc, err := application.NewAdminService(
		c.applicationConfig(), c.repo, c.explorer, c.wallet,
	)
	if err != nil {
		return err
	}

	c.adminSvc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
