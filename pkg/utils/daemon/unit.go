package daemon

// unitTemplate is the systemd service that runs the daemon. The
// placeholders are replaced by Install.
const unitTemplate = `[Unit]
Description=inamon INA233 power monitor daemon
After=local-fs.target

[Service]
Type=simple
ExecStart=/path/to/inamon daemon --config /path/to/config --daemon-socket /path/to/socket
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`
