// Package config provides configuration parsing for the vango-memo tool.
//
// The configuration is stored in memo.json in the working directory. The
// file is optional; every field has a default. MEMO_DEBUG and
// MEMO_LOG_LEVEL override the file.
//
// # Configuration File Structure
//
//	{
//	  "debug": false,
//	  "logLevel": "info",
//	  "inspector": {
//	    "addr": "localhost:7070"
//	  },
//	  "metrics": {
//	    "namespace": "memo"
//	  },
//	  "profile": {
//	    "dir": ".memo/profiles",
//	    "s3": {
//	      "bucket": "my-profiles",
//	      "prefix": "memo/",
//	      "region": "us-east-1",
//	      "endpoint": "http://localhost:9000"
//	    }
//	  },
//	  "demo": {
//	    "posts": 5,
//	    "ticks": 10,
//	    "interval": "250ms"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Inspector:", cfg.Inspector.Addr)
package config
